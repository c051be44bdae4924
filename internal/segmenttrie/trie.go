/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

// Package segmenttrie indexes URL path prefixes segment by segment.
//
// Route rules such as "/api/tasks" or "/api/projects/*/members" are stored
// one path segment per node. Lookups return the longest matching rule, and
// matching always respects segment boundaries: "/api/task" never matches
// "/api/tasks".
package segmenttrie

import (
	"errors"
	"strings"
)

// Trie is a segment-aware prefix index for '/'-separated URL paths.
// The wildcard "*" matches exactly one segment. Lookups use
// longest-prefix-match (LPM): the deepest rule wins, and at equal depth an
// exact segment beats a wildcard.
type Trie[T any] struct {
	children map[string]*Trie[T]
	hasVal   bool
	val      T
	// pattern is the canonical rule text, set only when hasVal is true.
	pattern string
}

var (
	// ErrInvalidPrefix is returned when inserting a prefix that has no
	// segments, empty segments, a query or fragment, or only wildcards.
	ErrInvalidPrefix = errors.New("segmenttrie: invalid prefix")
)

// New creates an empty trie ready for inserts.
func New[T any]() *Trie[T] {
	return &Trie[T]{children: make(map[string]*Trie[T])}
}

// Insert adds a path prefix and associates it with val. Re-inserting the
// same prefix replaces the value.
//
// Examples:
//
//	"/api/tasks"
//	"/api/projects/*/members"
//	"api/auth/refresh"   (the leading '/' is optional)
func (t *Trie[T]) Insert(prefix string, val T) error {
	if t == nil {
		return ErrInvalidPrefix
	}
	segs, ok := split(prefix)
	if !ok || len(segs) == 0 {
		return ErrInvalidPrefix
	}

	allWild := true
	for _, s := range segs {
		if s != "*" {
			allWild = false
			break
		}
	}
	if allWild {
		return ErrInvalidPrefix
	}

	cur := t
	for _, s := range segs {
		child, exists := cur.children[s]
		if !exists {
			child = New[T]()
			cur.children[s] = child
		}
		cur = child
	}
	cur.hasVal = true
	cur.val = val
	cur.pattern = "/" + strings.Join(segs, "/")
	return nil
}

// Match returns the value of the longest rule matching path.
func (t *Trie[T]) Match(path string) (T, bool) {
	v, ok, _ := t.MatchWithPattern(path)
	return v, ok
}

// MatchWithPattern returns the value of the longest rule matching path along
// with the rule's canonical pattern. Any query string or fragment on path is
// ignored.
func (t *Trie[T]) MatchWithPattern(path string) (T, bool, string) {
	var zero T
	if t == nil {
		return zero, false, ""
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")

	bestDepth := -1
	var best *Trie[T]

	var dfs func(n *Trie[T], rest string, depth int)
	dfs = func(n *Trie[T], rest string, depth int) {
		if n.hasVal && depth > bestDepth {
			bestDepth = depth
			best = n
		}
		if rest == "" {
			return
		}
		seg, tail, _ := strings.Cut(rest, "/")
		if seg == "" {
			// "//" inside a path; stop this branch
			return
		}
		if next, ok := n.children[seg]; ok {
			dfs(next, tail, depth+1)
		}
		if next, ok := n.children["*"]; ok {
			dfs(next, tail, depth+1)
		}
	}

	dfs(t, path, 0)
	if best == nil {
		return zero, false, ""
	}
	return best.val, true, best.pattern
}

// Len returns the number of rules stored in the trie.
func (t *Trie[T]) Len() int {
	if t == nil {
		return 0
	}
	n := 0
	if t.hasVal {
		n++
	}
	for _, c := range t.children {
		n += c.Len()
	}
	return n
}

// split trims surrounding slashes and splits p into segments. Empty
// segments, queries and fragments are rejected.
func split(p string) ([]string, bool) {
	p = strings.TrimSpace(p)
	if strings.ContainsAny(p, "?# ") {
		return nil, false
	}
	p = strings.Trim(p, "/")
	if p == "" {
		return nil, true
	}
	segs := strings.Split(p, "/")
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}
