package ledger

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Key identifies a document in world state.
//
// Simple keys are plain strings. Composite keys start with a 0x00 byte and
// terminate every component with 0x00, so two composite keys collide only
// when namespace and all parts are identical, and a composite key can never
// equal a simple key.
type Key string

const compositeSep = "\x00"

// SimpleKey validates a plain identifier for use as a key.
func SimpleKey(id string) (Key, error) {
	if id == "" {
		return "", fmt.Errorf("key must not be empty")
	}
	if !utf8.ValidString(id) {
		return "", fmt.Errorf("key %q is not valid UTF-8", id)
	}
	if strings.HasPrefix(id, compositeSep) {
		return "", fmt.Errorf("key %q must not start with a null byte", id)
	}
	return Key(id), nil
}

// CompositeKey builds a structured key from a namespace and ordered parts.
// Neither namespace nor parts may contain a null byte.
func CompositeKey(namespace string, parts ...string) (Key, error) {
	if err := validateComponent(namespace); err != nil {
		return "", fmt.Errorf("namespace: %w", err)
	}
	if namespace == "" {
		return "", fmt.Errorf("namespace: must not be empty")
	}

	var b strings.Builder
	b.WriteString(compositeSep)
	b.WriteString(namespace)
	b.WriteString(compositeSep)
	for i, p := range parts {
		if err := validateComponent(p); err != nil {
			return "", fmt.Errorf("part %d: %w", i, err)
		}
		b.WriteString(p)
		b.WriteString(compositeSep)
	}
	return Key(b.String()), nil
}

// SplitCompositeKey reverses CompositeKey.
func SplitCompositeKey(k Key) (namespace string, parts []string, err error) {
	s := string(k)
	if !k.IsComposite() || !strings.HasSuffix(s, compositeSep) {
		return "", nil, fmt.Errorf("key %q is not a composite key", s)
	}
	comps := strings.Split(s[1:len(s)-1], compositeSep)
	return comps[0], comps[1:], nil
}

// IsComposite reports whether the key was built by CompositeKey.
func (k Key) IsComposite() bool {
	return strings.HasPrefix(string(k), compositeSep)
}

// String renders composite keys readably, e.g. payment/C1/002.
func (k Key) String() string {
	if !k.IsComposite() {
		return string(k)
	}
	ns, parts, err := SplitCompositeKey(k)
	if err != nil {
		return strings.ReplaceAll(string(k), compositeSep, "/")
	}
	return strings.Join(append([]string{ns}, parts...), "/")
}

func validateComponent(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%q is not valid UTF-8", s)
	}
	if strings.Contains(s, compositeSep) {
		return fmt.Errorf("%q contains a null byte", s)
	}
	return nil
}
