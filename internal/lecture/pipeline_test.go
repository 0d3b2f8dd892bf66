package lecture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FriedOkra1/COGnitive/internal/media"
)

type fakeProber struct {
	info        media.Info
	probeErr    error
	validateErr error
}

func (f *fakeProber) Probe(ctx context.Context, path string) (media.Info, error) {
	return f.info, f.probeErr
}

func (f *fakeProber) Validate(ctx context.Context, path string) error {
	return f.validateErr
}

// fakeChunker materializes one chunk file per entry in chunkData.
type fakeChunker struct {
	needs        bool
	splitErr     error
	chunkData    []string
	cleanupCalls int
}

func (f *fakeChunker) NeedsChunking(ctx context.Context, path string) (bool, error) {
	return f.needs, nil
}

func (f *fakeChunker) Split(ctx context.Context, path, destDir string) ([]media.Chunk, error) {
	if f.splitErr != nil {
		return nil, f.splitErr
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, err
	}
	chunks := make([]media.Chunk, 0, len(f.chunkData))
	for i, data := range f.chunkData {
		p := filepath.Join(destDir, fmt.Sprintf("chunk-%d.ogg", i))
		if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
			return nil, err
		}
		chunks = append(chunks, media.Chunk{Path: p, Index: i, StartTime: float64(i) * media.ChunkDurationSeconds})
	}
	return chunks, nil
}

func (f *fakeChunker) Cleanup(destDir string) {
	f.cleanupCalls++
}

// fakeTranscriber maps audio content to transcript text.
type fakeTranscriber struct {
	byContent map[string]string
	err       error
	calls     int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, fileName string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	text, ok := f.byContent[string(audio)]
	if !ok {
		return "", fmt.Errorf("unexpected audio %q", string(audio))
	}
	return text, nil
}

type fakeNotesGenerator struct {
	notes         *Notes
	err           error
	gotTranscript string
}

func (f *fakeNotesGenerator) GenerateNotes(ctx context.Context, transcript string) (*Notes, error) {
	f.gotTranscript = transcript
	return f.notes, f.err
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.webm")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipelineSingleFileCompletes(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.webm", 5*1024*1024)
	require.NoError(t, err)

	src := writeSource(t, "small-audio")
	notes := sampleNotes()
	stt := &fakeTranscriber{byContent: map[string]string{"small-audio": "hello world"}}
	gen := &fakeNotesGenerator{notes: notes}

	p := NewPipeline(store, &fakeProber{info: media.Info{Duration: 600}}, &fakeChunker{needs: false}, stt, gen)
	gotID := p.Run(context.Background(), job.JobID, src, "lecture.webm")
	assert.Equal(t, job.JobID, gotID)

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, "Completed successfully", got.Stage)
	assert.Equal(t, float64(600), got.Duration)
	require.NotNil(t, got.CompletedAt)

	transcript, err := store.LoadTranscript(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", transcript)
	assert.Equal(t, "hello world", gen.gotTranscript)

	loaded, err := store.LoadNotes(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, notes, loaded)

	// The source was copied into the job's durable directory.
	assert.FileExists(t, filepath.Join(store.JobDir(job.JobID), "audio.webm"))
	assert.Equal(t, 1, stt.calls)
}

func TestPipelineChunkedAssemblesInOrder(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("long.webm", 0)
	require.NoError(t, err)

	src := writeSource(t, "long-audio")
	chunker := &fakeChunker{needs: true, chunkData: []string{"audio-0", "audio-1", "audio-2"}}
	stt := &fakeTranscriber{byContent: map[string]string{
		"audio-0": "a",
		"audio-1": "b",
		"audio-2": "c",
	}}

	p := NewPipeline(store, &fakeProber{info: media.Info{Duration: 2700}}, chunker, stt, &fakeNotesGenerator{notes: sampleNotes()})
	p.Run(context.Background(), job.JobID, src, "long.webm")

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	require.Equal(t, StatusCompleted, got.Status)

	transcript, err := store.LoadTranscript(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, "a b c", transcript)
	assert.Equal(t, 3, stt.calls)
	assert.Equal(t, 1, chunker.cleanupCalls)
}

func TestPipelineChunksCleanedUpOnFailure(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("long.webm", 0)
	require.NoError(t, err)

	src := writeSource(t, "long-audio")
	chunker := &fakeChunker{needs: true, chunkData: []string{"audio-0"}}
	stt := &fakeTranscriber{err: errors.New("whisper unavailable")}

	p := NewPipeline(store, &fakeProber{info: media.Info{Duration: 2700}}, chunker, stt, &fakeNotesGenerator{})
	p.Run(context.Background(), job.JobID, src, "long.webm")

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "whisper unavailable")
	assert.Equal(t, 1, chunker.cleanupCalls)
}

func TestPipelineValidationFailure(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("huge.webm", 0)
	require.NoError(t, err)

	src := writeSource(t, "audio")
	prober := &fakeProber{
		info:        media.Info{Duration: 10800},
		validateErr: fmt.Errorf("%w: 3.0 hours (max: 2.5 hours)", media.ErrDurationTooLong),
	}

	p := NewPipeline(store, prober, &fakeChunker{}, &fakeTranscriber{}, &fakeNotesGenerator{})
	p.Run(context.Background(), job.JobID, src, "huge.webm")

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "audio too long")

	_, err = store.LoadTranscript(job.JobID)
	require.Error(t, err)
}

func TestPipelineNotesFailureFailsJob(t *testing.T) {
	store := newTestStore(t)
	job, err := store.Create("lecture.webm", 0)
	require.NoError(t, err)

	src := writeSource(t, "small-audio")
	stt := &fakeTranscriber{byContent: map[string]string{"small-audio": "hello"}}
	gen := &fakeNotesGenerator{err: errors.New("failed to parse lecture notes response")}

	p := NewPipeline(store, &fakeProber{info: media.Info{Duration: 600}}, &fakeChunker{needs: false}, stt, gen)
	p.Run(context.Background(), job.JobID, src, "lecture.webm")

	got, ok := store.Get(job.JobID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, "lecture notes")
}

func TestPipelineCreatesJobWhenNoneSupplied(t *testing.T) {
	store := newTestStore(t)
	src := writeSource(t, "small-audio")
	stt := &fakeTranscriber{byContent: map[string]string{"small-audio": "hello"}}

	p := NewPipeline(store, &fakeProber{info: media.Info{Duration: 600}}, &fakeChunker{needs: false}, stt, &fakeNotesGenerator{notes: sampleNotes()})
	jobID := p.Run(context.Background(), "", src, "lecture.webm")
	require.NotEmpty(t, jobID)

	got, ok := store.Get(jobID)
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "lecture.webm", got.FileName)
}

func TestChunkProgressStaysInBand(t *testing.T) {
	for _, n := range []int{1, 3, 7, 50} {
		prev := 20
		for i := 0; i < n; i++ {
			got := chunkProgress(i, n)
			assert.GreaterOrEqual(t, got, prev, "n=%d i=%d", n, i)
			assert.LessOrEqual(t, got, 70, "n=%d i=%d", n, i)
			prev = got
		}
		assert.Equal(t, 70, chunkProgress(n-1, n), "n=%d", n)
	}
}
