// Package prefs implements normalization, merge, and filtering of list-valued
// preferences. Values arrive from a weakly-typed JSON boundary, so list
// elements can be bare strings, {"name": "X"} objects, or objects nesting the
// name one level deeper. All comparisons run over the canonical string form.
package prefs

import "fmt"

// Distinguished list-valued preference keys.
const (
	KeyFavoriteGenres    = "favorite_genres"
	KeyFavoriteActors    = "favorite_actors"
	KeyFavoriteDirectors = "favorite_directors"
)

// maxNameDepth bounds unwrapping of nested {"name": ...} shapes.
const maxNameDepth = 4

// IsListKey reports whether the key holds a merge-append deduplicated list.
func IsListKey(key string) bool {
	switch key {
	case KeyFavoriteGenres, KeyFavoriteActors, KeyFavoriteDirectors:
		return true
	}
	return false
}

// IsPersonKey reports whether the key's list elements are person-shaped.
func IsPersonKey(key string) bool {
	return key == KeyFavoriteActors || key == KeyFavoriteDirectors
}

// CanonicalName unwraps nested {"name": ...} representations down to the
// innermost name and stringifies it. Non-object, non-string values fall back
// to their default string form.
func CanonicalName(v any) string {
	for depth := 0; depth < maxNameDepth; depth++ {
		obj, ok := v.(map[string]any)
		if !ok {
			break
		}
		inner, ok := obj["name"]
		if !ok {
			break
		}
		v = inner
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// MergeList unions existing and incoming list elements by canonical name,
// preserving the existing order first and appending unseen incoming elements
// in their given order. The result is canonical strings only.
func MergeList(existing, incoming []any) []string {
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, lst := range [][]any{existing, incoming} {
		for _, v := range lst {
			name := CanonicalName(v)
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

// FilterList removes elements matching item from the list and reports whether
// anything was removed. Person-shaped elements match by canonical name;
// scalar elements match by stringified value.
func FilterList(list []any, item string, person bool) ([]string, bool) {
	kept := make([]string, 0, len(list))
	removed := false
	for _, v := range list {
		name := CanonicalName(v)
		match := name == item
		if !person {
			match = fmt.Sprintf("%v", v) == item
		}
		if match {
			removed = true
			continue
		}
		kept = append(kept, name)
	}
	return kept, removed
}
