// Package metadata holds the scalar metadata model shared by documents and
// query filters.
package metadata

import (
	"fmt"
	"sort"
)

// Metadata maps keys to scalar values.
type Metadata map[string]Value

// Filter is an equality filter: a document matches when every filter key is
// present in its metadata with an equal value.
type Filter map[string]Value

// KeyError reports which key held an unsupported value.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("metadata key %q: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// FromMap converts decoded JSON into Metadata. A nil map yields an empty Metadata.
// Errors are *KeyError values naming the offending key; keys are checked in
// sorted order so the reported key is deterministic.
func FromMap(m map[string]any) (Metadata, error) {
	out := make(Metadata, len(m))
	for _, k := range sortedKeys(m) {
		if k == "" {
			return nil, &KeyError{Key: k, Err: fmt.Errorf("keys must not be empty")}
		}
		v, err := FromAny(m[k])
		if err != nil {
			return nil, &KeyError{Key: k, Err: err}
		}
		out[k] = v
	}
	return out, nil
}

// FilterFromMap converts decoded JSON into a Filter. A nil or empty map yields a nil Filter.
func FilterFromMap(m map[string]any) (Filter, error) {
	if len(m) == 0 {
		return nil, nil
	}
	md, err := FromMap(m)
	if err != nil {
		return nil, err
	}
	return Filter(md), nil
}

// ToMap returns plain Go values suitable for JSON encoding.
func (m Metadata) ToMap() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.Any()
	}
	return out
}

// Encode renders every value with Value.Encode.
func (m Metadata) Encode() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.Encode()
	}
	return out
}

// DecodeMap reverses Metadata.Encode.
func DecodeMap(m map[string]string) (Metadata, error) {
	out := make(Metadata, len(m))
	for k, s := range m {
		v, err := Decode(s)
		if err != nil {
			return nil, &KeyError{Key: k, Err: err}
		}
		out[k] = v
	}
	return out, nil
}

// Matches reports whether md satisfies every condition of the filter.
// An empty filter matches everything.
func (f Filter) Matches(md Metadata) bool {
	for k, want := range f {
		got, ok := md[k]
		if !ok || !got.Equal(want) {
			return false
		}
	}
	return true
}

// Encode renders the filter with Value.Encode. It returns nil for an empty filter.
func (f Filter) Encode() map[string]string {
	if len(f) == 0 {
		return nil
	}
	return Metadata(f).Encode()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
