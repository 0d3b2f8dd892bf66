package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// MaxFileSize is the upload ceiling enforced before any processing.
	MaxFileSize = 500 * 1024 * 1024

	// MaxDurationSeconds caps recordings at 2.5 hours.
	MaxDurationSeconds = 2.5 * 60 * 60
)

// ErrFileTooLarge is returned by Validate when the file exceeds MaxFileSize.
var ErrFileTooLarge = fmt.Errorf("file too large")

// ErrDurationTooLong is returned by Validate when the recording exceeds MaxDurationSeconds.
var ErrDurationTooLong = fmt.Errorf("audio too long")

// ProbeError wraps failures to read or decode a media container.
type ProbeError struct {
	Path string
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("failed to probe media file %s: %v", e.Path, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Info describes a probed media file.
type Info struct {
	Duration float64 // seconds
	Size     int64   // bytes
	Format   string  // container format name
}

// ffprobe -print_format json output shape.
type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Inspector probes media files via ffprobe and validates them
// against the processing ceilings.
type Inspector struct {
	ffprobePath string
	runner      commandRunner
	log         *logrus.Entry
}

// NewInspector constructs an inspector invoking the given ffprobe binary.
func NewInspector(ffprobePath string) *Inspector {
	return &Inspector{
		ffprobePath: ffprobePath,
		runner:      &execRunner{},
		log:         logrus.WithField("component", "media"),
	}
}

// Probe returns duration, size and container format for a media file.
func (ins *Inspector) Probe(ctx context.Context, path string) (Info, error) {
	args := []string{
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		path,
	}

	res, err := ins.runner.Run(ctx, ins.ffprobePath, args...)
	if err != nil {
		return Info{}, &ProbeError{
			Path: path,
			Err:  fmt.Errorf("ffprobe: %v: %s", err, strings.TrimSpace(res.Stderr)),
		}
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return Info{}, &ProbeError{Path: path, Err: fmt.Errorf("unexpected ffprobe output: %w", err)}
	}

	info := Info{Format: out.Format.FormatName}
	if info.Format == "" {
		info.Format = "unknown"
	}
	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if s, err := strconv.ParseInt(out.Format.Size, 10, 64); err == nil {
		info.Size = s
	} else if st, err := os.Stat(path); err == nil {
		info.Size = st.Size()
	}

	return info, nil
}

// Validate fails fast when a file exceeds the size or duration ceiling.
func (ins *Inspector) Validate(ctx context.Context, path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return &ProbeError{Path: path, Err: err}
	}
	if st.Size() > MaxFileSize {
		return fmt.Errorf("%w: %.2fMB (max: 500MB)", ErrFileTooLarge, float64(st.Size())/1024/1024)
	}

	info, err := ins.Probe(ctx, path)
	if err != nil {
		return err
	}
	if info.Duration > MaxDurationSeconds {
		return fmt.Errorf("%w: %.1f hours (max: 2.5 hours)", ErrDurationTooLong, info.Duration/3600)
	}

	return nil
}
