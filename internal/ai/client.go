package ai

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

const (
	chatModel = openai.GPT4oMini

	// Transient provider errors are common on long uploads; a small
	// fixed retry budget improves success rate without masking
	// persistent failures.
	transcribeRetries    = 2
	transcribeRetryDelay = 2 * time.Second
)

// api is the subset of the OpenAI client consumed here, abstracted for tests.
type api interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client wraps the OpenAI API for transcription, note generation,
// study-content generation and chat.
type Client struct {
	api        api
	retryDelay time.Duration
	log        *logrus.Entry
}

// NewClient constructs a client authenticated with the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		api:        openai.NewClient(apiKey),
		retryDelay: transcribeRetryDelay,
		log:        logrus.WithField("component", "ai"),
	}
}

// Transcribe converts raw audio bytes to text via Whisper, retrying up
// to two more times with a fixed delay before giving up.
func (c *Client) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= transcribeRetries; attempt++ {
		if attempt > 0 {
			c.log.Warnf("transcription failed, retrying (%d/%d)...", attempt, transcribeRetries)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}

		text, err := c.transcribeOnce(ctx, audio, fileName)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) transcribeOnce(ctx context.Context, audio []byte, fileName string) (string, error) {
	c.log.Debugf("transcribing %s (%d bytes)", fileName, len(audio))

	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: fileName,
		Reader:   bytes.NewReader(audio),
		Language: "en",
	})
	if err != nil {
		return "", fmt.Errorf("transcription error: %w", err)
	}
	return resp.Text, nil
}

// jsonCompletion runs a chat completion in JSON mode and returns the
// raw content of the first choice.
func (c *Client) jsonCompletion(ctx context.Context, system, user string, temperature float32) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimSuffix(content, "```")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
	}
	return strings.TrimSpace(content)
}

// truncateTranscript caps the transcript fed into a prompt so the
// request stays inside practical prompt-size limits.
func truncateTranscript(transcript string, max int) string {
	if len(transcript) <= max {
		return transcript
	}
	return transcript[:max] + " ...(truncated for length)"
}
