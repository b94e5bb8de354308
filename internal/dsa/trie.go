// Package dsa provides a typed radix tree for name lookups.
package dsa

import (
	"github.com/armon/go-radix"
)

// Trie is a compressed prefix tree keyed by string.
type Trie[V any] struct {
	tree *radix.Tree
}

// NewTrie creates an empty tree.
func NewTrie[V any]() *Trie[V] {
	return &Trie[V]{tree: radix.New()}
}

// Insert adds or replaces the value for key.
func (t *Trie[V]) Insert(key string, value V) {
	t.tree.Insert(key, value)
}

// Get returns the value stored under key.
func (t *Trie[V]) Get(key string) (V, bool) {
	val, found := t.tree.Get(key)
	if !found {
		var zero V
		return zero, false
	}
	v, ok := val.(V)
	return v, ok
}

// Len returns the number of keys.
func (t *Trie[V]) Len() int {
	return t.tree.Len()
}

// WithPrefix returns the values whose key starts with prefix, in key order.
func (t *Trie[V]) WithPrefix(prefix string) []V {
	var out []V
	t.tree.WalkPrefix(prefix, func(_ string, val interface{}) bool {
		if v, ok := val.(V); ok {
			out = append(out, v)
		}
		return false
	})
	return out
}

// Closest returns the values sharing the longest prefix with query that at
// least one key has. Prefixes shorter than minLen are not considered.
func (t *Trie[V]) Closest(query string, minLen int) []V {
	for n := len(query); n >= minLen && n > 0; n-- {
		if matches := t.WithPrefix(query[:n]); len(matches) > 0 {
			return matches
		}
	}
	return nil
}
