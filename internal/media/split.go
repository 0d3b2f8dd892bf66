package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// ChunkDurationSeconds is the nominal length of one transcription chunk.
	ChunkDurationSeconds = 20 * 60

	// chunkSizeThreshold triggers chunking for dense recordings that are
	// short but still too big to upload in one piece.
	chunkSizeThreshold = 20 * 1024 * 1024
)

// Chunk is one bounded-duration slice of a source recording.
type Chunk struct {
	Path      string
	Index     int
	StartTime float64 // seconds from the start of the source
	Duration  float64 // actual seconds, shorter for the final chunk
}

// SplitError wraps a failure to encode one chunk.
type SplitError struct {
	Index int
	Err   error
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("failed to create chunk %d: %v", e.Index, e.Err)
}

func (e *SplitError) Unwrap() error { return e.Err }

// Splitter cuts recordings into chunk files encoded for speech transcription.
type Splitter struct {
	ffmpegPath string
	runner     commandRunner
	inspector  *Inspector
	log        *logrus.Entry
}

// NewSplitter constructs a splitter invoking the given ffmpeg binary.
func NewSplitter(ffmpegPath string, inspector *Inspector) *Splitter {
	return &Splitter{
		ffmpegPath: ffmpegPath,
		runner:     &execRunner{},
		inspector:  inspector,
		log:        logrus.WithField("component", "media"),
	}
}

// NeedsChunking reports whether a recording must be split before
// transcription. Either a long duration or a large file is sufficient.
func (s *Splitter) NeedsChunking(ctx context.Context, path string) (bool, error) {
	info, err := s.inspector.Probe(ctx, path)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return false, &ProbeError{Path: path, Err: err}
	}

	return info.Duration > ChunkDurationSeconds || st.Size() > chunkSizeThreshold, nil
}

// Split cuts the recording into fixed-length chunks under destDir, each
// re-encoded to mono 16kHz 64kbps Opus. Chunks already written when an
// encode fails are left for Cleanup.
func (s *Splitter) Split(ctx context.Context, path, destDir string) ([]Chunk, error) {
	info, err := s.inspector.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, &SplitError{Index: 0, Err: err}
	}

	numChunks := int(math.Ceil(info.Duration / ChunkDurationSeconds))
	if numChunks < 1 {
		numChunks = 1
	}
	s.log.Infof("splitting audio into %d chunks of %d minutes each", numChunks, ChunkDurationSeconds/60)

	chunks := make([]Chunk, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		start := float64(i) * ChunkDurationSeconds
		outPath := filepath.Join(destDir, fmt.Sprintf("chunk-%d.ogg", i))

		args := encodeArgs(path, outPath, start, ChunkDurationSeconds)
		res, runErr := s.runner.Run(ctx, s.ffmpegPath, args...)
		if runErr != nil {
			return nil, &SplitError{
				Index: i,
				Err:   fmt.Errorf("ffmpeg: %v: %s", runErr, strings.TrimSpace(res.Stderr)),
			}
		}

		chunkInfo, err := s.inspector.Probe(ctx, outPath)
		if err != nil {
			return nil, &SplitError{Index: i, Err: err}
		}

		chunks = append(chunks, Chunk{
			Path:      outPath,
			Index:     i,
			StartTime: start,
			Duration:  chunkInfo.Duration,
		})
		s.log.Debugf("created chunk %d/%d: %.1fs", i+1, numChunks, chunkInfo.Duration)
	}

	return chunks, nil
}

// Cleanup removes all chunk files under destDir. Failures are logged,
// never propagated: cleanup must not turn a finished run into a failure.
func (s *Splitter) Cleanup(destDir string) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnf("failed to read chunk directory %s: %v", destDir, err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(destDir, entry.Name())); err != nil {
			s.log.Warnf("failed to remove chunk %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.log.Infof("cleaned up %d audio chunks", removed)
	}
}

// encodeArgs builds ffmpeg args for one chunk cut re-encoded to the
// minimum fidelity the transcription model needs for speech.
func encodeArgs(input, output string, start, duration float64) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "libopus",
		"-b:a", "64k",
		output,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
