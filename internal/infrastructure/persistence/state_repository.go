// Package persistence stores build state between labelling runs.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	rlerrors "github.com/relicta-tech/revlabel/internal/errors"
	"github.com/relicta-tech/revlabel/internal/fileutil"
)

// MaxStateFileSize is the largest state file that will be loaded (1MB).
const MaxStateFileSize = 1 << 20

// stateFormatVersion is written into every state file.
const stateFormatVersion = 1

// Ensure implementations satisfy build.Repository.
var (
	_ build.Repository = (*FileStateRepository)(nil)
	_ build.Repository = (*MemoryStateRepository)(nil)
)

// checkContext returns ctx.Err() once ctx is done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// stateFile is the on-disk envelope.
type stateFile struct {
	Version int          `json:"version"`
	State   *build.State `json:"state"`
}

// FileStateRepository keeps build.State in a single JSON file.
type FileStateRepository struct {
	path string
	mu   sync.RWMutex
}

// NewFileStateRepository creates a repository backed by path. The file is
// created on the first Save.
func NewFileStateRepository(path string) (*FileStateRepository, error) {
	if path == "" {
		return nil, rlerrors.Validation("persistence.NewFileStateRepository", "state file path is required")
	}
	return &FileStateRepository{path: path}, nil
}

// Path returns the state file location.
func (r *FileStateRepository) Path() string {
	return r.path
}

// Load reads the state file. A missing file yields an empty state.
func (r *FileStateRepository) Load(ctx context.Context) (*build.State, error) {
	const op = "persistence.Load"

	if err := checkContext(ctx); err != nil {
		return nil, rlerrors.CanceledWrap(err, op)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	data, err := fileutil.ReadFileLimited(r.path, MaxStateFileSize)
	if err != nil {
		if os.IsNotExist(err) {
			return &build.State{}, nil
		}
		return nil, rlerrors.StateWrap(err, op, "failed to read state file")
	}

	var file stateFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, rlerrors.StateWrap(err, op, fmt.Sprintf("state file %s is corrupt", r.path))
	}
	if file.Version > stateFormatVersion {
		return nil, rlerrors.StateWrap(
			fmt.Errorf("unsupported state format version %d", file.Version),
			op, "state file was written by a newer release")
	}
	if file.State == nil {
		return &build.State{}, nil
	}
	return file.State, nil
}

// Save writes state atomically.
func (r *FileStateRepository) Save(ctx context.Context, state *build.State) error {
	const op = "persistence.Save"

	if err := checkContext(ctx); err != nil {
		return rlerrors.CanceledWrap(err, op)
	}
	if state == nil {
		return rlerrors.Validation(op, "state is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(stateFile{Version: stateFormatVersion, State: state}, "", "  ")
	if err != nil {
		return rlerrors.StateWrap(err, op, "failed to encode state")
	}
	data = append(data, '\n')

	if err := fileutil.AtomicWriteFile(r.path, data, 0o600); err != nil {
		return rlerrors.StateWrap(err, op, "failed to write state file")
	}
	return nil
}

// MemoryStateRepository keeps state for the lifetime of the process. It
// backs runs with persistence disabled.
type MemoryStateRepository struct {
	mu    sync.RWMutex
	state build.State
}

// NewMemoryStateRepository creates a repository seeded with initial.
func NewMemoryStateRepository(initial *build.State) *MemoryStateRepository {
	r := &MemoryStateRepository{}
	if initial != nil {
		r.state = cloneState(initial)
	}
	return r
}

// Load returns a copy of the stored state.
func (r *MemoryStateRepository) Load(ctx context.Context) (*build.State, error) {
	if err := checkContext(ctx); err != nil {
		return nil, rlerrors.CanceledWrap(err, "persistence.Load")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	s := cloneState(&r.state)
	return &s, nil
}

// Save replaces the stored state with a copy of state.
func (r *MemoryStateRepository) Save(ctx context.Context, state *build.State) error {
	if err := checkContext(ctx); err != nil {
		return rlerrors.CanceledWrap(err, "persistence.Save")
	}
	if state == nil {
		return rlerrors.Validation("persistence.Save", "state is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = cloneState(state)
	return nil
}

func cloneState(s *build.State) build.State {
	out := *s
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	out.History = append([]build.Record(nil), s.History...)
	return out
}
