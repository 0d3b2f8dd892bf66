package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/FriedOkra1/COGnitive/internal/lecture"
)

// ErrEmptyGeneration is returned when the model produced no valid items
// after filtering. An empty set is indistinguishable from "nothing to
// study" and must never be cached as a valid outcome.
var ErrEmptyGeneration = errors.New("no valid items generated")

// GenerateFlashcards creates count flashcards from a transcript. Items
// missing front or back text are discarded; zero surviving items is a
// hard failure.
func (c *Client) GenerateFlashcards(ctx context.Context, transcript string, count int) ([]lecture.Flashcard, error) {
	c.log.Infof("generating %d flashcards", count)

	content, err := c.jsonCompletion(ctx, contentSystemPrompt, flashcardsPrompt(transcript, count), 0.7)
	if err != nil {
		return nil, fmt.Errorf("failed to generate flashcards: %w", err)
	}

	items, err := decodeItems(content, "flashcards")
	if err != nil {
		return nil, fmt.Errorf("failed to generate flashcards: %w", err)
	}

	cards := make([]lecture.Flashcard, 0, len(items))
	for _, item := range items {
		front, _ := item["front"].(string)
		back, _ := item["back"].(string)
		if strings.TrimSpace(front) == "" || strings.TrimSpace(back) == "" {
			continue
		}

		cardType, _ := item["type"].(string)
		switch cardType {
		case lecture.FlashcardBasic, lecture.FlashcardConcept, lecture.FlashcardQA:
		default:
			cardType = lecture.FlashcardBasic
		}

		cards = append(cards, lecture.Flashcard{
			ID:    uuid.NewString(),
			Type:  cardType,
			Front: strings.TrimSpace(front),
			Back:  strings.TrimSpace(back),
		})
	}

	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: the content may be too short or unclear", ErrEmptyGeneration)
	}
	return cards, nil
}

// GenerateQuiz creates count quiz questions from a transcript, with the
// same filtering contract as GenerateFlashcards.
func (c *Client) GenerateQuiz(ctx context.Context, transcript string, count int) ([]lecture.QuizQuestion, error) {
	c.log.Infof("generating %d quiz questions", count)

	content, err := c.jsonCompletion(ctx, contentSystemPrompt, quizPrompt(transcript, count), 0.7)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	items, err := decodeItems(content, "questions")
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz: %w", err)
	}

	questions := make([]lecture.QuizQuestion, 0, len(items))
	for _, item := range items {
		question, _ := item["question"].(string)
		answer, hasAnswer := item["correctAnswer"]
		if strings.TrimSpace(question) == "" || !hasAnswer || answer == nil {
			continue
		}

		qType, _ := item["type"].(string)
		switch qType {
		case lecture.QuizMultipleChoice, lecture.QuizTrueFalse, lecture.QuizShortAnswer:
		default:
			qType = lecture.QuizMultipleChoice
		}

		var options []string
		if raw, ok := item["options"].([]any); ok {
			for _, o := range raw {
				if s, ok := o.(string); ok {
					options = append(options, s)
				}
			}
		}
		explanation, _ := item["explanation"].(string)

		questions = append(questions, lecture.QuizQuestion{
			ID:            uuid.NewString(),
			Type:          qType,
			Question:      strings.TrimSpace(question),
			Options:       options,
			CorrectAnswer: answer,
			Explanation:   explanation,
		})
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: the content may be too short or unclear", ErrEmptyGeneration)
	}
	return questions, nil
}

// decodeItems accepts either a bare JSON array or an object wrapping the
// array under key, which JSON-mode responses commonly produce.
func decodeItems(content, key string) ([]map[string]any, error) {
	payload := extractJSON(content)

	var arr []map[string]any
	if err := json.Unmarshal([]byte(payload), &arr); err == nil {
		return arr, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	if raw, ok := obj[key]; ok {
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr, nil
		}
	}
	return nil, fmt.Errorf("response JSON has no %q array", key)
}
