package lecture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	metadataFile   = "metadata.json"
	transcriptFile = "transcript.txt"
	notesFile      = "notes.json"
	chunksDirName  = "chunks"

	jobTTL        = 24 * time.Hour
	sweepInterval = time.Hour
)

// ErrJobNotFound is returned when an operation references an unknown job id.
var ErrJobNotFound = errors.New("job not found")

// Store is the durable registry of lecture jobs. It owns one directory
// per job on disk and keeps an in-memory index rebuilt from disk at
// startup. Every mutation rewrites the job's metadata file whole, so a
// polling reader always sees a consistent snapshot.
type Store struct {
	dir string
	ttl time.Duration
	log *logrus.Entry

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewStore creates the jobs directory if needed and loads existing
// job records from disk.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create jobs directory: %w", err)
	}

	s := &Store{
		dir:  dir,
		ttl:  jobTTL,
		log:  logrus.WithField("component", "jobstore"),
		jobs: make(map[string]*Job),
	}
	s.loadExisting()
	return s, nil
}

// loadExisting rebuilds the in-memory index from per-job metadata files.
// Directories that cannot be parsed are skipped, not fatal.
func (s *Store) loadExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.log.Warnf("could not scan jobs directory: %v", err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name(), metadataFile))
		if err != nil {
			s.log.Warnf("could not load job %s: %v", entry.Name(), err)
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			s.log.Warnf("could not parse metadata for job %s: %v", entry.Name(), err)
			continue
		}
		s.jobs[job.JobID] = &job
	}

	s.log.Infof("loaded %d existing jobs", len(s.jobs))
}

// Create allocates a new pending job, its on-disk directory and the
// chunks scratch subdirectory, and registers it in the index.
func (s *Store) Create(fileName string, fileSize int64) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		JobID:     uuid.NewString(),
		Status:    StatusPending,
		Progress:  0,
		Stage:     "Initializing",
		CreatedAt: now,
		UpdatedAt: now,
		FileName:  fileName,
		FileSize:  fileSize,
	}

	if err := os.MkdirAll(s.ChunkDir(job.JobID), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create job directory: %w", err)
	}
	if err := s.persist(job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.jobs[job.JobID] = job
	s.mu.Unlock()

	s.log.Infof("created job %s (%s)", job.JobID, fileName)
	snap := *job
	return &snap, nil
}

// Get returns a snapshot of a job, or false if the id is unknown.
func (s *Store) Get(jobID string) (*Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	// Return a copy so readers never observe a half-applied update.
	snap := *job
	return &snap, true
}

// JobDir returns the on-disk directory owned by a job.
func (s *Store) JobDir(jobID string) string {
	return filepath.Join(s.dir, jobID)
}

// ChunkDir returns the scratch directory for a job's in-flight chunks.
func (s *Store) ChunkDir(jobID string) string {
	return filepath.Join(s.dir, jobID, chunksDirName)
}

// update applies fn to the live record and rewrites its metadata file.
func (s *Store) update(jobID string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	fn(job)
	job.UpdatedAt = time.Now().UTC()
	return s.persist(job)
}

// UpdateProgress records the current pipeline stage for a job.
func (s *Store) UpdateProgress(jobID string, status Status, progress int, stage string) error {
	return s.update(jobID, func(j *Job) {
		j.Status = status
		j.Progress = progress
		j.Stage = stage
	})
}

// SetDuration records the probed audio duration on the job metadata.
func (s *Store) SetDuration(jobID string, seconds float64) error {
	return s.update(jobID, func(j *Job) {
		j.Duration = seconds
	})
}

// Complete persists the transcript and notes artifacts, then marks the
// job completed at progress 100.
func (s *Store) Complete(jobID string, transcript string, notes *Notes) error {
	if err := s.SaveTranscript(jobID, transcript); err != nil {
		return err
	}
	if err := s.SaveNotes(jobID, notes); err != nil {
		return err
	}

	err := s.update(jobID, func(j *Job) {
		now := time.Now().UTC()
		j.Status = StatusCompleted
		j.Progress = 100
		j.Stage = "Completed successfully"
		j.CompletedAt = &now
		j.Transcript = transcript
		j.Notes = notes
	})
	if err != nil {
		return err
	}

	s.log.Infof("job completed: %s", jobID)
	return nil
}

// Fail marks the job failed with the given error message.
func (s *Store) Fail(jobID string, errMsg string) error {
	err := s.update(jobID, func(j *Job) {
		j.Status = StatusFailed
		j.Error = errMsg
	})
	if err != nil {
		return err
	}

	s.log.Errorf("job failed: %s - %s", jobID, errMsg)
	return nil
}

// Delete removes a job's entire directory tree and its index entry.
func (s *Store) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[jobID]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err := os.RemoveAll(s.JobDir(jobID)); err != nil {
		return fmt.Errorf("failed to delete job %s: %w", jobID, err)
	}
	delete(s.jobs, jobID)

	s.log.Infof("deleted job %s", jobID)
	return nil
}

// SaveTranscript writes the transcript artifact for a job.
func (s *Store) SaveTranscript(jobID string, transcript string) error {
	if _, ok := s.Get(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	path := filepath.Join(s.JobDir(jobID), transcriptFile)
	if err := os.WriteFile(path, []byte(transcript), 0o644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// LoadTranscript reads the transcript artifact for a job.
func (s *Store) LoadTranscript(jobID string) (string, error) {
	if _, ok := s.Get(jobID); !ok {
		return "", fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), transcriptFile))
	if err != nil {
		return "", fmt.Errorf("failed to load transcript: %w", err)
	}
	return string(data), nil
}

// SaveNotes writes the notes artifact for a job.
func (s *Store) SaveNotes(jobID string, notes *Notes) error {
	if _, ok := s.Get(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.JobDir(jobID), notesFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to save notes: %w", err)
	}
	return nil
}

// LoadNotes reads the notes artifact for a job.
func (s *Store) LoadNotes(jobID string) (*Notes, error) {
	if _, ok := s.Get(jobID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), notesFile))
	if err != nil {
		return nil, fmt.Errorf("failed to load notes: %w", err)
	}
	var notes Notes
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("failed to parse notes: %w", err)
	}
	return &notes, nil
}

// SaveGeneratedContent caches an on-demand artifact (flashcards, quiz)
// for a job, keyed by kind.
func (s *Store) SaveGeneratedContent(jobID string, kind ContentKind, content any) error {
	if _, ok := s.Get(jobID); !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	data, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", kind, err)
	}
	path := filepath.Join(s.JobDir(jobID), string(kind)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save %s: %w", kind, err)
	}
	return nil
}

// LoadGeneratedContent loads a cached artifact into dest. It reports
// false without error when the artifact has not been generated yet.
func (s *Store) LoadGeneratedContent(jobID string, kind ContentKind, dest any) (bool, error) {
	if _, ok := s.Get(jobID); !ok {
		return false, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	data, err := os.ReadFile(filepath.Join(s.JobDir(jobID), string(kind)+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load %s: %w", kind, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", kind, err)
	}
	return true, nil
}

// Sweep deletes every job older than the store TTL. A failure to delete
// one job is logged and does not abort the sweep for the others.
func (s *Store) Sweep() {
	cutoff := time.Now().UTC().Add(-s.ttl)

	s.mu.RLock()
	expired := make([]string, 0)
	for jobID, job := range s.jobs {
		if job.CreatedAt.Before(cutoff) {
			expired = append(expired, jobID)
		}
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}
	s.log.Infof("cleaning up %d old jobs", len(expired))
	for _, jobID := range expired {
		if err := s.Delete(jobID); err != nil {
			s.log.Warnf("failed to clean up job %s: %v", jobID, err)
		}
	}
}

// RunSweeper sweeps once immediately and then on a fixed interval until
// the context is cancelled.
func (s *Store) RunSweeper(ctx context.Context) {
	s.Sweep()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// persist rewrites the job's metadata file as one whole-file replace.
func (s *Store) persist(job *Job) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode job metadata: %w", err)
	}
	path := filepath.Join(s.JobDir(job.JobID), metadataFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save job metadata: %w", err)
	}
	return nil
}
