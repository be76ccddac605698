package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrHookNotFound is returned when a requested hook is not registered.
var ErrHookNotFound = errors.New("hook not found")

// Registry holds the hooks that receive repetition events.
type Registry struct {
	hooks map[string]Hook
	mu    sync.RWMutex
}

// NewRegistry creates a Registry holding the given hooks.
func NewRegistry(hooks ...Hook) *Registry {
	r := &Registry{hooks: make(map[string]Hook)}
	for _, h := range hooks {
		r.hooks[h.Name] = h
	}
	return r
}

// Add registers a hook, replacing any hook with the same name.
func (r *Registry) Add(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks[h.Name] = h
}

// Discover scans dir for subdirectories containing a hook.json manifest and
// registers them. A missing directory is not an error; unreadable or invalid
// manifests are skipped. It returns the number of hooks found.
func (r *Registry) Discover(dir string) (int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	found := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, "hook.json"))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil || manifest.Name == "" || manifest.Executable == "" {
			continue
		}

		r.hooks[manifest.Name] = Hook{
			Name:    manifest.Name,
			Command: filepath.Join(hookPath, manifest.Executable),
			Args:    manifest.Args,
			Dir:     hookPath,
		}
		found++
	}

	return found, nil
}

// Get returns a hook by name.
func (r *Registry) Get(name string) (Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hooks[name]
	if !ok {
		return Hook{}, ErrHookNotFound
	}
	return h, nil
}

// List returns all hooks sorted by name.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Name < hooks[j].Name })
	return hooks
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}
