// Package markup converts the heterogeneous XML dialects emitted by the
// upstream services into a generic tree of maps, slices, and strings, and
// provides the traversal helpers the extractors share.
//
// Shape rules, chosen to keep every source walkable with the same code:
//   - an element becomes a map of its children keyed by tag name
//   - attributes live under "@_<name>" keys, so an attribute can never
//     collide with an identically named child element
//   - a tag repeated under one parent becomes a []any
//   - an element holding only text collapses to its trimmed string
//   - text mixed with children is kept under "#text"
package markup

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// AttrPrefix marks attribute keys in the generic tree.
const AttrPrefix = "@_"

// TextKey holds element text when it coexists with child elements.
const TextKey = "#text"

// Parse converts markup text into the generic tree representation. The
// returned map has one entry per document-level element (normally one:
// the root).
func Parse(text string) (map[string]any, error) {
	doc, err := xmlquery.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	root := make(map[string]any)
	for child := doc.FirstChild; child != nil; child = child.NextSibling {
		if child.Type != xmlquery.ElementNode {
			continue
		}
		addChild(root, child.Data, convert(child))
	}
	if len(root) == 0 {
		return nil, fmt.Errorf("parse markup: no root element")
	}
	return root, nil
}

// convert maps one element to its generic form.
func convert(elem *xmlquery.Node) any {
	node := make(map[string]any)
	for _, attr := range elem.Attr {
		node[AttrPrefix+attr.Name.Local] = attr.Value
	}

	var text strings.Builder
	for child := elem.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.ElementNode:
			addChild(node, child.Data, convert(child))
		case xmlquery.TextNode, xmlquery.CharDataNode:
			text.WriteString(child.Data)
		}
	}

	trimmed := strings.TrimSpace(text.String())
	if len(node) == 0 {
		return trimmed
	}
	if trimmed != "" {
		node[TextKey] = trimmed
	}
	return node
}

// addChild inserts value under key, promoting repeated keys to a slice.
func addChild(node map[string]any, key string, value any) {
	existing, ok := node[key]
	if !ok {
		node[key] = value
		return
	}
	if slice, ok := existing.([]any); ok {
		node[key] = append(slice, value)
		return
	}
	node[key] = []any{existing, value}
}

// EnsureSlice normalizes the single-child/multi-child ambiguity: a bare
// value becomes a one-element slice, an existing slice is returned as is,
// and nil yields an empty slice.
func EnsureSlice(v any) []any {
	switch val := v.(type) {
	case nil:
		return []any{}
	case []any:
		return val
	default:
		return []any{val}
	}
}

// Child descends through nested maps following keys, returning nil as soon
// as the path breaks.
func Child(node any, keys ...string) any {
	current := node
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

// String coerces a scalar node to its string form. Sources are inconsistent
// about wrapping: the same field arrives as a bare string in one response
// and as {"#text": ...} in the next.
func String(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val[TextKey].(string); ok {
			return s
		}
	}
	return ""
}

// Text returns the string value of the child at key, unwrapping "#text".
func Text(node any, keys ...string) string {
	return String(Child(node, keys...))
}

// FindIdentifiers walks the tree without a depth limit and collects string
// identifiers from every sub-tree tagged with one of targetKeys. Matched
// values are slice-normalized via EnsureSlice; for each element the idKeys
// are tried in order and the first key present wins (and must hold a
// non-empty string, or the element is skipped). Matches at different depths
// all contribute; results are de-duplicated.
func FindIdentifiers(node any, targetKeys, idKeys []string) map[string]struct{} {
	found := make(map[string]struct{})
	findIdentifiers(node, targetKeys, idKeys, found)
	return found
}

func findIdentifiers(node any, targetKeys, idKeys []string, acc map[string]struct{}) {
	switch n := node.(type) {
	case map[string]any:
		for key, value := range n {
			if containsKey(targetKeys, key) {
				collectIdentifiers(value, idKeys, acc)
			}
			// Recurse into every value regardless of match, so nested
			// occurrences at deeper levels are still discovered.
			findIdentifiers(value, targetKeys, idKeys, acc)
		}
	case []any:
		for _, item := range n {
			findIdentifiers(item, targetKeys, idKeys, acc)
		}
	}
}

func collectIdentifiers(value any, idKeys []string, acc map[string]struct{}) {
	for _, item := range EnsureSlice(value) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		for _, idKey := range idKeys {
			v, present := m[idKey]
			if !present {
				continue
			}
			if s, ok := v.(string); ok && s != "" {
				acc[s] = struct{}{}
			}
			break
		}
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
