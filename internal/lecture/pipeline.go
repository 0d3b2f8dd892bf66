package lecture

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/FriedOkra1/COGnitive/internal/media"
)

// Prober inspects and validates a media file before processing starts.
type Prober interface {
	Probe(ctx context.Context, path string) (media.Info, error)
	Validate(ctx context.Context, path string) error
}

// Chunker decides whether a recording must be split and produces the
// chunk files for it.
type Chunker interface {
	NeedsChunking(ctx context.Context, path string) (bool, error)
	Split(ctx context.Context, path, destDir string) ([]media.Chunk, error)
	Cleanup(destDir string)
}

// Transcriber converts raw audio bytes into text. Implementations are
// expected to retry transient failures internally.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, fileName string) (string, error)
}

// NotesGenerator produces structured study notes from a transcript.
type NotesGenerator interface {
	GenerateNotes(ctx context.Context, transcript string) (*Notes, error)
}

// Pipeline drives one lecture from raw upload to completed notes:
// validation, optional chunking, per-chunk transcription, transcript
// assembly and note generation, persisting progress after every step.
type Pipeline struct {
	store   *Store
	prober  Prober
	chunker Chunker
	stt     Transcriber
	notes   NotesGenerator
	log     *logrus.Entry
}

// NewPipeline wires the orchestrator to its collaborators.
func NewPipeline(store *Store, prober Prober, chunker Chunker, stt Transcriber, notes NotesGenerator) *Pipeline {
	return &Pipeline{
		store:   store,
		prober:  prober,
		chunker: chunker,
		stt:     stt,
		notes:   notes,
		log:     logrus.WithField("component", "pipeline"),
	}
}

// Run processes one lecture end to end and returns the job id. It is
// meant to be launched in its own goroutine: every failure is recorded
// on the job via Fail, never propagated past this boundary. When jobID
// is empty a fresh job is created first.
func (p *Pipeline) Run(ctx context.Context, jobID, audioPath, fileName string) string {
	if jobID == "" {
		var size int64
		if st, err := os.Stat(audioPath); err == nil {
			size = st.Size()
		}
		job, err := p.store.Create(fileName, size)
		if err != nil {
			p.log.Errorf("could not create job for %s: %v", fileName, err)
			return ""
		}
		jobID = job.JobID
	}

	log := p.log.WithField("job_id", jobID)
	log.Info("processing lecture")

	if err := p.run(ctx, jobID, audioPath); err != nil {
		log.Errorf("lecture processing failed: %v", err)
		if ferr := p.store.Fail(jobID, err.Error()); ferr != nil {
			log.Errorf("could not record job failure: %v", ferr)
		}
		return jobID
	}

	log.Info("lecture processing completed")
	return jobID
}

func (p *Pipeline) run(ctx context.Context, jobID, audioPath string) error {
	info, err := p.prober.Probe(ctx, audioPath)
	if err != nil {
		return err
	}
	if err := p.store.UpdateProgress(jobID, StatusPending, 5, "Validating audio file"); err != nil {
		return err
	}
	if err := p.prober.Validate(ctx, audioPath); err != nil {
		return err
	}
	if err := p.store.SetDuration(jobID, info.Duration); err != nil {
		return err
	}

	// Copy the source into the job directory so the run does not depend
	// on the caller's transient upload path.
	jobAudio := filepath.Join(p.store.JobDir(jobID), "audio"+sourceExt(audioPath))
	if err := copyFile(audioPath, jobAudio); err != nil {
		return fmt.Errorf("failed to copy audio into job directory: %w", err)
	}

	needsChunking, err := p.chunker.NeedsChunking(ctx, jobAudio)
	if err != nil {
		return err
	}

	var transcript string
	if needsChunking {
		transcript, err = p.transcribeChunked(ctx, jobID, jobAudio)
	} else {
		transcript, err = p.transcribeWhole(ctx, jobID, jobAudio)
	}
	if err != nil {
		return err
	}

	if err := p.store.UpdateProgress(jobID, StatusGeneratingNotes, 70, "Generating lecture notes"); err != nil {
		return err
	}
	notes, err := p.notes.GenerateNotes(ctx, transcript)
	if err != nil {
		return err
	}

	return p.store.Complete(jobID, transcript, notes)
}

// transcribeWhole handles recordings small enough for a single
// transcription call.
func (p *Pipeline) transcribeWhole(ctx context.Context, jobID, path string) (string, error) {
	if err := p.store.UpdateProgress(jobID, StatusTranscribing, 30, "Transcribing audio with Whisper"); err != nil {
		return "", err
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read audio file: %w", err)
	}
	text, err := p.stt.Transcribe(ctx, audio, filepath.Base(path))
	if err != nil {
		return "", err
	}

	if err := p.store.UpdateProgress(jobID, StatusTranscribing, 60, "Transcription complete"); err != nil {
		return "", err
	}
	return text, nil
}

// transcribeChunked splits the recording, transcribes each chunk in
// index order and assembles the full transcript. Chunk files are
// cleaned up on every exit path.
func (p *Pipeline) transcribeChunked(ctx context.Context, jobID, path string) (string, error) {
	if err := p.store.UpdateProgress(jobID, StatusSplittingAudio, 10, "Splitting audio into chunks"); err != nil {
		return "", err
	}

	chunkDir := p.store.ChunkDir(jobID)
	defer p.chunker.Cleanup(chunkDir)

	chunks, err := p.chunker.Split(ctx, path, chunkDir)
	if err != nil {
		return "", err
	}
	p.log.WithField("job_id", jobID).Infof("split into %d chunks", len(chunks))

	transcripts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		stage := fmt.Sprintf("Transcribing chunk %d/%d", i+1, len(chunks))
		if err := p.store.UpdateProgress(jobID, StatusTranscribing, chunkProgress(i, len(chunks)), stage); err != nil {
			return "", err
		}

		audio, err := os.ReadFile(chunk.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read chunk %d: %w", chunk.Index, err)
		}
		text, err := p.stt.Transcribe(ctx, audio, filepath.Base(chunk.Path))
		if err != nil {
			return "", err
		}
		transcripts = append(transcripts, text)
	}

	return strings.Join(transcripts, " "), nil
}

// chunkProgress maps chunk completion onto the 20-70% band, leaving
// room for note generation and completion.
func chunkProgress(i, n int) int {
	return 20 + int(math.Round(50*float64(i+1)/float64(n)))
}

func sourceExt(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		ext = ".webm"
	}
	return ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
