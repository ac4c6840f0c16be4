// Package filestore persists attempts and evaluations as one pretty-printed
// JSON document each, under {dataDir}/attempts and {dataDir}/evaluations.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/3CBolt/promptpractice-kiro-sub000/internal/domain"
)

const (
	attemptsDir    = "attempts"
	evaluationsDir = "evaluations"
)

// Store implements both repository ports over the local filesystem. Writes
// are atomic (temp file + rename) and serialized per attempt id so the
// per-model result fan-in cannot interleave partial documents.
type Store struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates the data directories and returns a store rooted at dataDir.
func New(dataDir string) (*Store, error) {
	for _, d := range []string{attemptsDir, evaluationsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("op=filestore.New: %w", err)
		}
	}
	return &Store{root: dataDir, locks: make(map[string]*sync.Mutex)}, nil
}

// lockFor returns the per-attempt mutex, creating it on first use.
func (s *Store) lockFor(attemptID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[attemptID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[attemptID] = l
	}
	return l
}

func (s *Store) attemptPath(id string) string {
	return filepath.Join(s.root, attemptsDir, id+".json")
}

func (s *Store) evaluationPath(id string) string {
	return filepath.Join(s.root, evaluationsDir, id+".json")
}

// writeDoc marshals v with 2-space indentation and renames it into place.
func writeDoc(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("op=filestore.writeDoc: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("op=filestore.writeDoc: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("op=filestore.writeDoc: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("op=filestore.writeDoc: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("op=filestore.writeDoc: %w", err)
	}
	return nil
}

func readDoc(path string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("op=filestore.readDoc: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("op=filestore.readDoc: %s: %w", path, err)
	}
	return nil
}

// Create persists a new attempt. An existing document for the same id is a
// conflict: attempts are immutable once written.
func (s *Store) Create(_ context.Context, a domain.Attempt) error {
	l := s.lockFor(a.ID)
	l.Lock()
	defer l.Unlock()
	path := s.attemptPath(a.ID)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: attempt %s", domain.ErrConflict, a.ID)
	}
	return writeDoc(path, a)
}

func (s *Store) Get(_ context.Context, id string) (domain.Attempt, error) {
	var a domain.Attempt
	if err := readDoc(s.attemptPath(id), &a); err != nil {
		return domain.Attempt{}, err
	}
	return a, nil
}

// Upsert writes the evaluation document whole.
func (s *Store) Upsert(_ context.Context, e domain.Evaluation) error {
	l := s.lockFor(e.AttemptID)
	l.Lock()
	defer l.Unlock()
	return writeDoc(s.evaluationPath(e.AttemptID), e)
}

// UpdateStatus mutates only the status and error fields, leaving results
// accumulated so far untouched.
func (s *Store) UpdateStatus(_ context.Context, attemptID string, status domain.EvaluationStatus, evalErr *domain.EvaluationError) error {
	l := s.lockFor(attemptID)
	l.Lock()
	defer l.Unlock()

	var e domain.Evaluation
	if err := readDoc(s.evaluationPath(attemptID), &e); err != nil {
		return err
	}
	if !e.Status.CanTransition(status) {
		return fmt.Errorf("%w: evaluation %s is %s, cannot become %s",
			domain.ErrConflict, attemptID, e.Status, status)
	}
	e.Status = status
	e.Error = evalErr
	e.UpdatedAt = time.Now().UTC()
	return writeDoc(s.evaluationPath(attemptID), e)
}

// MergeResult inserts or replaces one model's entry keyed by ModelID.
// Last write wins, which is what the fan-in wants for late arrivals after
// a timeout.
func (s *Store) MergeResult(_ context.Context, attemptID string, r domain.ModelEvaluation) error {
	l := s.lockFor(attemptID)
	l.Lock()
	defer l.Unlock()

	var e domain.Evaluation
	if err := readDoc(s.evaluationPath(attemptID), &e); err != nil {
		return err
	}
	replaced := false
	for i := range e.Results {
		if e.Results[i].ModelID == r.ModelID {
			e.Results[i] = r
			replaced = true
			break
		}
	}
	if !replaced {
		e.Results = append(e.Results, r)
	}
	e.UpdatedAt = time.Now().UTC()
	return writeDoc(s.evaluationPath(attemptID), e)
}

func (s *Store) GetByAttemptID(_ context.Context, attemptID string) (domain.Evaluation, error) {
	var e domain.Evaluation
	if err := readDoc(s.evaluationPath(attemptID), &e); err != nil {
		return domain.Evaluation{}, err
	}
	return e, nil
}

var (
	_ domain.AttemptRepository    = (*Store)(nil)
	_ domain.EvaluationRepository = (*Store)(nil)
)
