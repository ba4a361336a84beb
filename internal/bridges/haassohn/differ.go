package haassohn

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/nerrad567/gray-logic-haassohn/internal/state"
)

// rootSegment prefixes every leaf path written by the Differ.
const rootSegment = "device"

// StateStore is the part of the host state store the bridge uses.
// It is satisfied by *state.Registry.
type StateStore interface {
	// GetObject returns the schema entry for path, or nil if path is unknown.
	GetObject(ctx context.Context, path string) (*state.Object, error)

	// GetState returns the stored value for path, or nil if none exists.
	GetState(ctx context.Context, path string) (*state.Value, error)

	// SetState writes value under path.
	SetState(ctx context.Context, path string, value any, ack bool) error
}

// Update describes one leaf visited during a sync pass.
type Update struct {
	Path    string
	Value   any
	Changed bool // written because it was new or different
	Initial bool // no prior value existed
}

// Differ projects status documents onto the state store.
type Differ struct {
	store   StateStore
	session *Session
	logger  Logger
}

// NewDiffer creates a Differ writing to store and recording facts in session.
// logger may be nil.
func NewDiffer(store StateStore, session *Session, logger Logger) *Differ {
	return &Differ{store: store, session: session, logger: logger}
}

// Sync walks doc depth-first in key order. Nested objects are descended
// into; every other value is a leaf at "device.<prefix>.<key>". Arrays and
// objects found at a leaf position are stored as JSON text. A leaf is written
// (acknowledged) when it has no prior value or the prior value differs.
//
// Leaves without a schema object set the session's missing-state flag and are
// skipped. A null value is a malformed document and fails with ErrProtocol.
// Any store error aborts the pass and is returned; updates made before the
// error stand.
func (d *Differ) Sync(ctx context.Context, doc map[string]any, prefix string) ([]Update, error) {
	var updates []Update
	if err := d.walk(ctx, doc, prefix, &updates); err != nil {
		return updates, err
	}
	return updates, nil
}

func (d *Differ) walk(ctx context.Context, node map[string]any, prefix string, out *[]Update) error {
	keys := make([]string, 0, len(node))
	for k := range node {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node[key]
		if value == nil {
			return fmt.Errorf("%w: %s is null", ErrProtocol, rootSegment+"."+joinPath(prefix, key))
		}
		if child, ok := value.(map[string]any); ok {
			if err := d.walk(ctx, child, joinPath(prefix, key), out); err != nil {
				return err
			}
			continue
		}

		u, err := d.syncLeaf(ctx, rootSegment+"."+joinPath(prefix, key), value)
		if err != nil {
			return err
		}
		if u != nil {
			*out = append(*out, *u)
		}
	}
	return nil
}

func (d *Differ) syncLeaf(ctx context.Context, path string, raw any) (*Update, error) {
	obj, err := d.store.GetObject(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("looking up object %s: %w", path, err)
	}
	if obj == nil {
		d.session.MarkMissing()
		logWarn(d.logger, "state not in schema, skipping", "path", path, "error", ErrSchemaMismatch)
		return nil, nil
	}

	value, err := normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("normalising %s: %w", path, err)
	}

	prior, err := d.store.GetState(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}

	d.session.ObserveFact(path, value)

	u := &Update{Path: path, Value: value}
	switch {
	case prior == nil:
		u.Changed, u.Initial = true, true
		logDebug(d.logger, "new state", "path", path, "value", value)
	case !reflect.DeepEqual(prior.Value, value):
		u.Changed = true
		logDebug(d.logger, "state changed", "path", path, "value", value, "was", prior.Value)
	default:
		return u, nil
	}

	if err := d.store.SetState(ctx, path, value, true); err != nil {
		return nil, fmt.Errorf("writing state %s: %w", path, err)
	}
	return u, nil
}

// normalize stores arrays and objects as JSON text and passes primitives
// through.
func normalize(v any) (any, error) {
	switch v.(type) {
	case []any, map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	default:
		return v, nil
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
