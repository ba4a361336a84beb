package state

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed objects.yaml
var defaultObjects []byte

type schemaFile struct {
	Objects []Object `yaml:"objects"`
}

// DefaultObjects returns the built-in object schema for the stove.
func DefaultObjects() ([]Object, error) {
	return ParseObjects(defaultObjects)
}

// ParseObjects decodes and validates an object schema document.
func ParseObjects(data []byte) ([]Object, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing object schema: %w", err)
	}

	seen := make(map[string]bool, len(f.Objects))
	for i, obj := range f.Objects {
		if err := ValidatePath(obj.Path); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		if seen[obj.Path] {
			return nil, fmt.Errorf("object %d: duplicate path %q", i, obj.Path)
		}
		seen[obj.Path] = true

		switch obj.Type {
		case TypeBoolean, TypeNumber, TypeString, TypeJSON:
		default:
			return nil, fmt.Errorf("object %q: unsupported type %q", obj.Path, obj.Type)
		}
	}

	return f.Objects, nil
}

// ValidatePath checks that path is a non-empty dotted identifier.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	for _, seg := range strings.Split(path, ".") {
		if seg == "" {
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
		if strings.ContainsAny(seg, "/+# ") {
			return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidPath, path)
		}
	}
	return nil
}

// checkType reports whether v is acceptable for an object of type t.
// nil is accepted for every type.
func checkType(t ObjectType, v any) error {
	if v == nil {
		return nil
	}
	ok := false
	switch t {
	case TypeBoolean:
		_, ok = v.(bool)
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
			ok = true
		}
	case TypeString, TypeJSON:
		_, ok = v.(string)
	}
	if !ok {
		return fmt.Errorf("%w: %T for %s", ErrInvalidType, v, t)
	}
	return nil
}
