package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FriedOkra1/COGnitive/internal/lecture"
)

// GenerateNotes turns a full transcript into structured study notes.
// The transcript is truncated to the first 50,000 characters; an
// unparsable model response is fatal to the call.
func (c *Client) GenerateNotes(ctx context.Context, transcript string) (*lecture.Notes, error) {
	c.log.Infof("generating lecture notes from %d chars of transcript", len(transcript))

	content, err := c.jsonCompletion(ctx, notesSystemPrompt, notesPrompt(transcript), 0.5)
	if err != nil {
		return nil, fmt.Errorf("failed to generate lecture notes: %w", err)
	}

	var notes lecture.Notes
	if err := json.Unmarshal([]byte(extractJSON(content)), &notes); err != nil {
		return nil, fmt.Errorf("failed to parse lecture notes response: %w", err)
	}
	return &notes, nil
}
