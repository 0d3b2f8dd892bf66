package lecture

import "time"

// Status is the processing state of a lecture job.
type Status string

const (
	StatusPending         Status = "pending"
	StatusSplittingAudio  Status = "splitting_audio"
	StatusTranscribing    Status = "transcribing"
	StatusGeneratingNotes Status = "generating_notes"
	StatusCompleted       Status = "completed"
	StatusFailed          Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one tracked lecture-processing request. The json tags describe
// the metadata record persisted per job; transcript and notes live in
// separate artifact files because they can be large.
type Job struct {
	JobID       string     `json:"jobId"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Stage       string     `json:"stage"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	FileName string  `json:"fileName,omitempty"`
	Duration float64 `json:"duration,omitempty"` // seconds
	FileSize int64   `json:"fileSize,omitempty"` // bytes

	// Populated in memory once the job completes; loaded from the
	// artifact files, never from the metadata record.
	Transcript string `json:"-"`
	Notes      *Notes `json:"-"`
}

// Notes is the structured study summary generated from a transcript.
type Notes struct {
	Summary       string   `json:"summary"`
	KeyPoints     []string `json:"keyPoints"`
	DetailedNotes string   `json:"detailedNotes"`
	Topics        []string `json:"topics"`
	ActionItems   []string `json:"actionItems,omitempty"`
}

// Flashcard types.
const (
	FlashcardBasic   = "basic"   // term / definition
	FlashcardConcept = "concept" // concept / explanation
	FlashcardQA      = "qa"      // question / answer
)

// Flashcard is one study card generated from a transcript.
type Flashcard struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Quiz question types.
const (
	QuizMultipleChoice = "multiple_choice"
	QuizTrueFalse      = "true_false"
	QuizShortAnswer    = "short_answer"
)

// QuizQuestion is one generated assessment item. CorrectAnswer holds an
// option index for multiple choice and a literal string otherwise.
type QuizQuestion struct {
	ID            string   `json:"id"`
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer any      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// ContentKind keys on-demand generated artifacts cached per job.
type ContentKind string

const (
	KindFlashcards ContentKind = "flashcards"
	KindQuiz       ContentKind = "quiz"
)
