package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dyluth/kudos/internal/store"
)

// boardNamePattern limits board identities to names that are safe as
// database file names. Case-normalization happens at the transport edge;
// by the time a name reaches the registry it is already lowercase.
var boardNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Registry maps board identity to its lazily-created Agent. All access to
// a board goes through the handle the registry returns; nothing else ever
// touches a board's store.
type Registry struct {
	dataDir string
	deps    Deps

	mu     sync.Mutex
	agents map[string]*Agent
}

// NewRegistry creates a registry storing board databases under dataDir.
func NewRegistry(dataDir string, deps Deps) (*Registry, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Registry{
		dataDir: dataDir,
		deps:    deps,
		agents:  make(map[string]*Agent),
	}, nil
}

// Get returns the agent for a board, creating it (and its database) on
// first use.
func (r *Registry) Get(name string) (*Agent, error) {
	if !boardNamePattern.MatchString(name) {
		return nil, fmt.Errorf("%w: invalid board name %q", ErrInvalidInput, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.agents[name]; ok {
		return a, nil
	}

	st, err := store.Open(filepath.Join(r.dataDir, name+".db"))
	if err != nil {
		return nil, fmt.Errorf("open store for board %s: %w", name, err)
	}

	a, err := newAgent(name, st, r.deps)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create agent for board %s: %w", name, err)
	}

	r.agents[name] = a
	return a, nil
}

// Boards lists every known board: those open in memory plus those with a
// database on disk from a previous run.
func (r *Registry) Boards() ([]string, error) {
	names := make(map[string]struct{})

	r.mu.Lock()
	for name := range r.agents {
		names[name] = struct{}{}
	}
	r.mu.Unlock()

	entries, err := os.ReadDir(r.dataDir)
	if err != nil {
		return nil, fmt.Errorf("list data directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".db") {
			continue
		}
		names[strings.TrimSuffix(entry.Name(), ".db")] = struct{}{}
	}

	out := make([]string, 0, len(names))
	for name := range names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// Close closes every open agent's store.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, a := range r.agents {
		if err := a.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store for board %s: %w", name, err)
		}
	}
	r.agents = make(map[string]*Agent)
	return firstErr
}
