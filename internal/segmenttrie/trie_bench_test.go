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

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

// makePath builds a path of depth segments, replacing every k-th segment
// with "*" when k > 0.
func makePath(rng *rand.Rand, depth, k int) string {
	segs := make([]string, depth)
	for i := range segs {
		if k > 0 && (i+1)%k == 0 {
			segs[i] = "*"
			continue
		}
		segs[i] = fmt.Sprintf("s%d", rng.Intn(16))
	}
	return "/" + strings.Join(segs, "/")
}

func BenchmarkMatch(b *testing.B) {
	for _, rules := range []int{16, 256, 4096} {
		b.Run(fmt.Sprintf("rules=%d", rules), func(b *testing.B) {
			rng := rand.New(rand.NewSource(1))
			tr := New[int]()
			for i := 0; i < rules; i++ {
				_ = tr.Insert(makePath(rng, 1+rng.Intn(4), 3), i)
			}
			queries := make([]string, 512)
			for i := range queries {
				queries[i] = makePath(rng, 5, 0)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = tr.Match(queries[i%len(queries)])
			}
		})
	}
}
