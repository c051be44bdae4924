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

package segmenttrie

import "testing"

func TestInsertAndMatch_Simple(t *testing.T) {
	tr := New[string]()
	must(t, tr.Insert("/api/tasks", "tasks"))
	must(t, tr.Insert("/api/auth/refresh", "refresh"))
	must(t, tr.Insert("api/projects", "projects"))

	if v, ok, p := tr.MatchWithPattern("/api/tasks/42"); !ok || v != "tasks" || p != "/api/tasks" {
		t.Fatalf("match /api/tasks/42 => ok=%v v=%v p=%q", ok, v, p)
	}
	if v, ok, p := tr.MatchWithPattern("/api/auth/refresh"); !ok || v != "refresh" || p != "/api/auth/refresh" {
		t.Fatalf("match /api/auth/refresh => ok=%v v=%v p=%q", ok, v, p)
	}
	if v, ok, p := tr.MatchWithPattern("/api/projects/"); !ok || v != "projects" || p != "/api/projects" {
		t.Fatalf("leading slash must be optional in rules: ok=%v v=%v p=%q", ok, v, p)
	}
	if tr.Len() != 3 {
		t.Fatalf("Len = %d, want 3", tr.Len())
	}
}

func TestMatch_RespectsSegmentBoundaries(t *testing.T) {
	tr := New[int]()
	must(t, tr.Insert("/api/task", 1))

	if _, ok := tr.Match("/api/tasks"); ok {
		t.Fatal("/api/task must not match /api/tasks")
	}
	if v, ok := tr.Match("/api/task?id=1"); !ok || v != 1 {
		t.Fatal("query string must be ignored")
	}
}

func TestWildcard_OneSegment(t *testing.T) {
	tr := New[int]()
	must(t, tr.Insert("/api/projects/*/members", 2))
	must(t, tr.Insert("/api/projects/p1/members", 1))

	if v, ok, p := tr.MatchWithPattern("/api/projects/p1/members"); !ok || v != 1 || p != "/api/projects/p1/members" {
		t.Fatalf("exact must win over wildcard, got ok=%v v=%v p=%q", ok, v, p)
	}
	if v, ok, p := tr.MatchWithPattern("/api/projects/p9/members/3"); !ok || v != 2 || p != "/api/projects/*/members" {
		t.Fatalf("wildcard match failed: ok=%v v=%v p=%q", ok, v, p)
	}
	if _, ok := tr.Match("/api/projects/members"); ok {
		t.Fatal("wildcard should not match zero segments")
	}
}

func TestLPM_PrefersDeeperEvenIfExactBranchExists(t *testing.T) {
	tr := New[int]()
	must(t, tr.Insert("/a/*/c", 7))
	must(t, tr.Insert("/a/b", 1))

	if v, ok, p := tr.MatchWithPattern("/a/b/c"); !ok || v != 7 || p != "/a/*/c" {
		t.Fatalf("LPM must choose wildcard path: ok=%v v=%v p=%q", ok, v, p)
	}
}

func TestInvalidInputs(t *testing.T) {
	tr := New[int]()
	for _, p := range []string{"", "/", "/a//b", "/*", "/*/*", "/a?b=1", "/a#frag"} {
		if err := tr.Insert(p, 1); err == nil {
			t.Fatalf("Insert(%q) must fail", p)
		}
	}
	var nilTrie *Trie[int]
	if _, ok := nilTrie.Match("/a"); ok {
		t.Fatal("nil trie must not match")
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
