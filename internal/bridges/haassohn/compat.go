package haassohn

import "fmt"

// Compatibility is the hardware/software allow-list. Keys have the form
// "<hw>_<sw>"; a missing entry, or one that is null, false, 0 or "", means
// unsupported.
type Compatibility struct {
	allowed map[string]any
	loadErr error
}

// NewCompatibility creates a gate over allowed. A non-nil loadErr (an
// allow-list that could not be parsed) makes every pair unsupported.
func NewCompatibility(allowed map[string]any, loadErr error) *Compatibility {
	return &Compatibility{allowed: allowed, loadErr: loadErr}
}

// CompatKey returns the allow-list key for a version pair.
func CompatKey(hw, sw string) string {
	return hw + "_" + sw
}

// Check returns ErrUnsupportedVersion unless the pair is allowed.
func (c *Compatibility) Check(hw, sw string) error {
	if c.loadErr != nil {
		return fmt.Errorf("%w: reading allow-list: %w", ErrUnsupportedVersion, c.loadErr)
	}
	key := CompatKey(hw, sw)
	if !allowedValue(c.allowed[key]) {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, key)
	}
	return nil
}

// allowedValue reports whether an allow-list entry marks its pair supported.
func allowedValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case uint64:
		return x != 0
	default:
		return true
	}
}
