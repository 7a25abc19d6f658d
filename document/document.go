// Package document defines the parsed representation of a locale document:
// a nested, string-keyed tree whose leaves are the translated strings.
//
// A document is a Node. Every value in a Node is either a Leaf (a string) or
// another Node, which keeps traversal explicit and avoids reflection on
// arbitrary decoded values. Codecs decode into generic Go values and convert
// them with FromAny.
//
// The reserved top-level key "meta" holds scalar metadata about the document
// (version, description, ...) and is accessed through Meta rather than being
// treated as a translation tree.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MetaKey is the reserved top-level key holding document metadata
const MetaKey = "meta"

// Value is a single value in a locale document: either a Leaf or a Node
type Value interface {
	value()
}

// Leaf is a translated string
type Leaf string

func (Leaf) value() {}

// Node is a nested mapping from key to Value
type Node map[string]Value

func (Node) value() {}

// MarshalJSON renders the leaf as a plain JSON string
func (l Leaf) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(l))
}

// FromAny converts a generic decoded value (as produced by encoding/json or
// yaml.v2) into a document Value. Maps become Nodes, strings become Leaves
// and any other scalar is stringified. Map keys that are not strings (yaml.v2
// decodes mappings as map[interface{}]interface{}) are stringified as well.
func FromAny(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Leaf("")
	case string:
		return Leaf(t)
	case map[string]interface{}:
		n := make(Node, len(t))
		for k, val := range t {
			n[k] = FromAny(val)
		}
		return n
	case map[interface{}]interface{}:
		n := make(Node, len(t))
		for k, val := range t {
			n[fmt.Sprint(k)] = FromAny(val)
		}
		return n
	default:
		return Leaf(fmt.Sprint(t))
	}
}

// NodeFromAny converts a generic decoded value into a Node. A nil input
// yields an empty Node, any non-mapping input yields false.
func NodeFromAny(v interface{}) (Node, bool) {
	if v == nil {
		return Node{}, true
	}
	n, ok := FromAny(v).(Node)
	return n, ok
}

// ToAny converts the node back into the generic form used by encoding/json,
// suitable for serialization
func (n Node) ToAny() map[string]interface{} {
	out := make(map[string]interface{}, len(n))
	for k, v := range n {
		switch t := v.(type) {
		case Leaf:
			out[k] = string(t)
		case Node:
			out[k] = t.ToAny()
		}
	}
	return out
}

// Lookup resolves a dot-separated key by iteratively descending the tree.
// It returns false when a segment is absent, when an intermediate segment
// resolves to a Leaf, or when the full path ends on a Node instead of a
// translated string. A missing intermediate is never an error.
func (n Node) Lookup(key string) (string, bool) {
	if n == nil || key == "" {
		return "", false
	}

	current := n
	segments := strings.Split(key, ".")
	for i, segment := range segments {
		v, ok := current[segment]
		if !ok {
			return "", false
		}

		if i == len(segments)-1 {
			leaf, ok := v.(Leaf)
			if !ok {
				return "", false
			}
			return string(leaf), true
		}

		next, ok := v.(Node)
		if !ok {
			return "", false
		}
		current = next
	}

	return "", false
}

// Has reports whether the dotted key resolves to a translated string
func (n Node) Has(key string) bool {
	_, ok := n.Lookup(key)
	return ok
}

// Meta returns the reserved metadata node, or nil when the document carries
// no metadata
func (n Node) Meta() Node {
	meta, ok := n[MetaKey].(Node)
	if !ok {
		return nil
	}
	return meta
}
