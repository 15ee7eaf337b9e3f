package rules

import "strings"

// Match reports whether a rule pattern matches a path.
//
// The pattern language is deliberately small: '*' matches any
// substring, including path separators, so "*.proto" matches
// "src/schema.proto". The pattern is split on '*' and the path must
// contain the literal fragments in order; a pattern not starting with
// '*' anchors its first fragment to the start of the path, one not
// ending with '*' anchors its last fragment to the end. Stock path
// globbing (filepath.Match and friends) stops '*' at '/', which is the
// wrong semantics here.
func Match(pattern, path string) bool {
	frags := strings.Split(pattern, "*")
	if len(frags) == 1 {
		return path == pattern
	}

	// Anchor the tail first so the last fragment cannot be consumed
	// out of order by a greedy middle fragment.
	last := frags[len(frags)-1]
	if last != "" {
		if !strings.HasSuffix(path, last) {
			return false
		}
		path = path[:len(path)-len(last)]
	}

	for i, frag := range frags[:len(frags)-1] {
		if frag == "" {
			continue
		}
		if i == 0 {
			if !strings.HasPrefix(path, frag) {
				return false
			}
			path = path[len(frag):]
			continue
		}
		idx := strings.Index(path, frag)
		if idx < 0 {
			return false
		}
		path = path[idx+len(frag):]
	}
	return true
}
