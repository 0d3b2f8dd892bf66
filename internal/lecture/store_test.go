package lecture

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleNotes() *Notes {
	return &Notes{
		Summary:       "A lecture about Go.",
		KeyPoints:     []string{"interfaces", "goroutines"},
		DetailedNotes: "Section 1: interfaces...",
		Topics:        []string{"Go"},
		ActionItems:   []string{"write more Go"},
	}
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("lecture.mp3", 1024)
	require.NoError(t, err)
	require.NotEmpty(t, job.JobID)

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, 0, got.Progress)
	assert.Equal(t, "lecture.mp3", got.FileName)
	assert.Equal(t, int64(1024), got.FileSize)

	// Job directory, chunks scratch dir and metadata exist on disk.
	assert.DirExists(t, store.ChunkDir(job.JobID))
	assert.FileExists(t, filepath.Join(store.JobDir(job.JobID), metadataFile))
}

func TestGetUnknownJob(t *testing.T) {
	store := newTestStore(t)
	_, ok := store.Get("nope")
	assert.False(t, ok)
}

func TestUpdateProgressPersistsToDisk(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	require.NoError(t, store.UpdateProgress(job.JobID, StatusTranscribing, 30, "Transcribing audio with Whisper"))

	// A fresh store over the same directory sees the update.
	reloaded, err := NewStore(store.dir)
	require.NoError(t, err)
	got, ok := reloaded.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusTranscribing, got.Status)
	assert.Equal(t, 30, got.Progress)
	assert.Equal(t, "Transcribing audio with Whisper", got.Stage)
}

func TestUpdateUnknownJobFails(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateProgress("missing", StatusTranscribing, 30, "x")
	require.ErrorIs(t, err, ErrJobNotFound)

	require.ErrorIs(t, store.Fail("missing", "boom"), ErrJobNotFound)
	require.ErrorIs(t, store.Complete("missing", "t", sampleNotes()), ErrJobNotFound)
}

func TestCompleteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	notes := sampleNotes()
	require.NoError(t, store.Complete(job.JobID, "full transcript", notes))

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "Completed successfully", got.Stage)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)

	transcript, err := store.LoadTranscript(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "full transcript", transcript)

	loaded, err := store.LoadNotes(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, notes, loaded)
}

func TestFailRecordsError(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	require.NoError(t, store.Fail(job.JobID, "ffmpeg exploded"))

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "ffmpeg exploded", got.Error)

	// No transcript or notes artifacts for a failed job.
	_, err = store.LoadTranscript(job.JobID)
	require.Error(t, err)
	_, err = store.LoadNotes(job.JobID)
	require.Error(t, err)
}

func TestNotesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	notes := sampleNotes()
	require.NoError(t, store.SaveNotes(job.JobID, notes))
	loaded, err := store.LoadNotes(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, notes, loaded)
}

func TestGeneratedContentCache(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	var cards []Flashcard
	cached, err := store.LoadGeneratedContent(job.JobID, KindFlashcards, &cards)
	require.NoError(t, err)
	assert.False(t, cached)

	saved := []Flashcard{{ID: "f1", Type: FlashcardBasic, Front: "Go", Back: "A language"}}
	require.NoError(t, store.SaveGeneratedContent(job.JobID, KindFlashcards, saved))

	cached, err = store.LoadGeneratedContent(job.JobID, KindFlashcards, &cards)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, saved, cards)

	// Quiz kind is keyed independently.
	var questions []QuizQuestion
	cached, err = store.LoadGeneratedContent(job.JobID, KindQuiz, &questions)
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestDeleteRemovesJob(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)

	require.NoError(t, store.Delete(job.JobID))

	_, ok := store.Get(job.JobID)
	assert.False(t, ok)
	_, err = os.Stat(store.JobDir(job.JobID))
	assert.True(t, os.IsNotExist(err))

	require.ErrorIs(t, store.Delete(job.JobID), ErrJobNotFound)
}

func TestStartupRecoverySkipsCorruptDirs(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	job, err := store.Create("lecture.mp3", 0)
	require.NoError(t, err)
	require.NoError(t, store.Complete(job.JobID, "transcript", sampleNotes()))

	// A directory with unparsable metadata must not break startup.
	corrupt := filepath.Join(dir, "corrupt-job")
	require.NoError(t, os.MkdirAll(corrupt, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(corrupt, metadataFile), []byte("{broken"), 0o644))

	reloaded, err := NewStore(dir)
	require.NoError(t, err)

	got, ok := reloaded.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)

	_, ok = reloaded.Get("corrupt-job")
	assert.False(t, ok)
}

func TestSweepDeletesExpiredJobs(t *testing.T) {
	store := newTestStore(t)

	oldJob, err := store.Create("old.mp3", 0)
	require.NoError(t, err)
	freshJob, err := store.Create("fresh.mp3", 0)
	require.NoError(t, err)

	// Backdate past the TTL.
	store.mu.Lock()
	store.jobs[oldJob.JobID].CreatedAt = time.Now().UTC().Add(-25 * time.Hour)
	store.mu.Unlock()

	store.Sweep()

	_, ok := store.Get(oldJob.JobID)
	assert.False(t, ok)
	_, err = os.Stat(store.JobDir(oldJob.JobID))
	assert.True(t, os.IsNotExist(err))

	_, ok = store.Get(freshJob.JobID)
	assert.True(t, ok)
}
