package state

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Listener receives every change applied to the Registry.
//
// Listeners are called synchronously, outside the registry lock, in the
// order they subscribed. They may call back into the Registry.
type Listener func(ctx context.Context, change Change)

// Registry is the host key-value state store: an object schema plus the
// last acknowledged value per path, cached in memory over a Repository.
//
// Acknowledged writes update the stored value and persist it. Unacknowledged
// writes are commands: they are validated and delivered to listeners but the
// stored value is left untouched until the device confirms it.
//
// All public methods are thread-safe.
type Registry struct {
	repo Repository

	objects map[string]Object
	values  map[string]Value
	mu      sync.RWMutex

	listeners  []Listener
	listenerMu sync.RWMutex

	logger Logger
	now    func() time.Time
}

// NewRegistry creates a registry over objects. repo may be nil for a purely
// in-memory store.
func NewRegistry(objects []Object, repo Repository) *Registry {
	r := &Registry{
		repo:    repo,
		objects: make(map[string]Object, len(objects)),
		values:  make(map[string]Value),
		logger:  noopLogger{},
		now:     time.Now,
	}
	for _, obj := range objects {
		r.objects[obj.Path] = obj
	}
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads persisted values from the repository. Values for
// paths no longer in the schema are dropped from the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	stored, err := r.repo.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("loading states: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.values = make(map[string]Value, len(stored))
	dropped := 0
	for _, v := range stored {
		if _, ok := r.objects[v.Path]; !ok {
			dropped++
			continue
		}
		r.values[v.Path] = v
	}

	r.logger.Info("state cache refreshed", "count", len(r.values), "dropped", dropped)
	return nil
}

// GetObject returns the schema entry for path, or nil if the path is unknown.
func (r *Registry) GetObject(ctx context.Context, path string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[path]
	if !ok {
		return nil, nil
	}
	return &obj, nil
}

// GetState returns the current value for path, or nil if nothing was
// stored yet. Unknown paths yield ErrUnknownPath.
func (r *Registry) GetState(ctx context.Context, path string) (*Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.objects[path]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPath, path)
	}
	v, ok := r.values[path]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

// SetState writes value under path on behalf of the bridge.
func (r *Registry) SetState(ctx context.Context, path string, value any, ack bool) error {
	return r.Apply(ctx, Change{Path: path, Value: value, Ack: ack, Source: SourceBridge})
}

// Apply validates and applies a change, then notifies listeners.
func (r *Registry) Apply(ctx context.Context, change Change) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = r.now()
	}

	r.mu.RLock()
	obj, ok := r.objects[change.Path]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPath, change.Path)
	}

	if change.Ack {
		if err := r.store(ctx, change); err != nil {
			return err
		}
	} else {
		if !obj.Write {
			return fmt.Errorf("%w: %s", ErrReadOnly, change.Path)
		}
		if err := checkType(obj.Type, change.Value); err != nil {
			return fmt.Errorf("%s: %w", change.Path, err)
		}
	}

	r.notify(ctx, change)
	return nil
}

func (r *Registry) store(ctx context.Context, change Change) error {
	v := Value{
		Path:      change.Path,
		Value:     change.Value,
		Ack:       true,
		Source:    change.Source,
		UpdatedAt: change.Timestamp,
	}

	if r.repo != nil {
		if err := r.repo.Save(ctx, v); err != nil {
			return fmt.Errorf("persisting %s: %w", change.Path, err)
		}
	}

	r.mu.Lock()
	r.values[change.Path] = v
	r.mu.Unlock()
	return nil
}

// Subscribe registers a listener for all future changes.
func (r *Registry) Subscribe(l Listener) {
	r.listenerMu.Lock()
	r.listeners = append(r.listeners, l)
	r.listenerMu.Unlock()
}

func (r *Registry) notify(ctx context.Context, change Change) {
	r.listenerMu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.listenerMu.RUnlock()

	for _, l := range listeners {
		l(ctx, change)
	}
}

// Objects returns the schema sorted by path.
func (r *Registry) Objects() []Object {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Object, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// States returns all stored values sorted by path.
func (r *Registry) States() []Value {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Value, 0, len(r.values))
	for _, v := range r.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
