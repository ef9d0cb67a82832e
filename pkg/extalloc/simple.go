// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extalloc

// takeSegment cuts count extents off the front of area, advancing its
// Start and shrinking both Count and Unreserved by count.
func takeSegment[H comparable](area *Area[H], count uint64) Segment[H] {
	seg := Segment[H]{
		SourceHandle: area.SourceHandle,
		Start:        area.Start,
		ExtentCount:  count,
	}

	area.Start += count
	area.Count -= count
	area.Unreserved -= count

	return seg
}

func containsSource[H comparable](sources []*Source[H], src *Source[H]) bool {
	for _, s := range sources {
		if s == src {
			return true
		}
	}
	return false
}

// allocateSimple fills each of the areas parallel areas independently,
// letting every one fragment differently. Used for single-area requests
// and for any request that forbids splitting, even a multi-area one.
func allocateSimple[H comparable](req *Request[H], res *Result[H], usedSources *[]*Source[H], areas uint32, perArea uint64) uint64 {
	var allocated uint64

	for s := uint32(0); s < areas; s++ {
		needed := perArea
		var areaAllocated uint64
		var areaSource *Source[H]

		for needed > 0 {
			area := findArea(req, needed)
			if area == nil {
				// Insufficient space; stop filling this area with
				// whatever was allocated so far. Not an error.
				break
			}

			if req.ParallelAreasSeparate && usedSources != nil && containsSource(*usedSources, area.source) {
				// This source is already committed to an earlier
				// parallel area; hide it and retry, then restore.
				saved := area.Unreserved
				area.Unreserved = 0
				alt := findArea(req, needed)
				area.Unreserved = saved

				if alt == nil {
					// Cannot satisfy the redundancy constraint;
					// stop filling this area.
					break
				}
				area = alt
			}

			if areaSource == nil {
				areaSource = area.source
			}

			toAlloc := area.Count
			if needed < toAlloc {
				toAlloc = needed
			}

			seg := takeSegment(area, toAlloc)
			res.Allocated[s] = append(res.Allocated[s], seg)

			needed -= toAlloc
			areaAllocated += toAlloc
		}

		if areaSource != nil && usedSources != nil {
			*usedSources = append(*usedSources, areaSource)
		}

		allocated += areaAllocated
	}

	return allocated
}
