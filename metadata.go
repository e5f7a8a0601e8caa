package compose

import "maps"

// Well known metadata keys filled in for every registration exposed through
// export factories.
const (
	MetadataProcessingPriority = "ProcessingPriority"
	MetadataOverridePriority   = "OverridePriority"
	MetadataIsOverride         = "IsOverride"
	MetadataServiceName        = "ServiceName"
	MetadataImplementation     = "Implementation"
	MetadataLifetime           = "Lifetime"
)

// Metadata is a typed key/value bag attached to a registration.
type Metadata map[string]any

// Get returns the value stored under key.
func (m Metadata) Get(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (m Metadata) String(key string) string {
	s, _ := MetadataValue[string](m, key)
	return s
}

// Int returns the value under key when it is an int.
func (m Metadata) Int(key string) int {
	i, _ := MetadataValue[int](m, key)
	return i
}

// Contains reports whether the value under key equals want or, for slices of
// strings, holds want as one of its elements.
func (m Metadata) Contains(key, want string) bool {
	switch v := m[key].(type) {
	case string:
		return v == want
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	case []any:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	}
	return false
}

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// With returns a copy of m with key set to value.
func (m Metadata) With(key string, value any) Metadata {
	out := m.Clone()
	out[key] = value
	return out
}

// MetadataValue returns the value under key converted to T.
func MetadataValue[T any](m Metadata, key string) (T, bool) {
	v, ok := m[key]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}
