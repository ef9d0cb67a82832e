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

// findArea answers "among all free areas across all sources, given this
// request's policy, what is the best candidate for needed extents, or
// none?" It never mutates state.
func findArea[H comparable](req *Request[H], needed uint64) *Area[H] {
	switch req.Policy {
	case PolicyAnywhere:
		return findAnywhere(req.Sources)
	case PolicyNormal:
		return findNormal(req.Sources, needed, req.CanSplit)
	case PolicyContiguous:
		// CONTIGUOUS never splits, regardless of req.CanSplit.
		return findContiguous(req.Sources, needed)
	case PolicyCling:
		return findCling(req.Sources, needed, req.ParallelAreas, req.CanSplit, req.MaximiseCling)
	case PolicyClingByTags:
		return findClingByTags(req, needed)
	default:
		return nil
	}
}

// findAnywhere returns the first area with any free space at all; no
// size check, no preference. Splitting is always implied.
func findAnywhere[H comparable](sources []*Source[H]) *Area[H] {
	for _, src := range sources {
		for _, a := range src.areas {
			if a.Unreserved > 0 {
				return a
			}
		}
	}
	return nil
}

// findNormal prefers larger areas to reduce fragmentation. Without
// splitting it returns the first area big enough to satisfy needed in
// one piece; with splitting it returns the globally largest area by
// Unreserved, first-encountered on ties.
func findNormal[H comparable](sources []*Source[H], needed uint64, canSplit bool) *Area[H] {
	var best *Area[H]
	var bestSize uint64

	for _, src := range sources {
		for _, a := range src.areas {
			if a.Unreserved == 0 {
				continue
			}

			if !canSplit {
				if a.Unreserved >= needed && a.Count >= needed {
					return a
				}
				continue
			}

			if a.Unreserved > bestSize {
				best = a
				bestSize = a.Unreserved
			}
		}
	}

	return best
}

// findContiguous requires the whole request to fit a single area;
// splitting is never permitted for this policy.
func findContiguous[H comparable](sources []*Source[H], needed uint64) *Area[H] {
	for _, src := range sources {
		for _, a := range src.areas {
			if a.Unreserved >= needed && a.Count >= needed {
				return a
			}
		}
	}
	return nil
}

// sourceInParallelAreas reports whether src already appears in
// parallelAreas, identified by SourceHandle equality.
func sourceInParallelAreas[H comparable](src *Source[H], parallelAreas []Segment[H]) bool {
	for _, seg := range parallelAreas {
		if seg.SourceHandle == src.Handle {
			return true
		}
	}
	return false
}

// findCling prefers sources that already appear in parallelAreas
// (affinity by source identity). Without parallelAreas it decays to
// PolicyNormal.
func findCling[H comparable](sources []*Source[H], needed uint64, parallelAreas []Segment[H], canSplit, maximiseCling bool) *Area[H] {
	if len(parallelAreas) == 0 {
		return findNormal(sources, needed, canSplit)
	}

	for _, src := range sources {
		if !sourceInParallelAreas(src, parallelAreas) {
			continue
		}

		for _, a := range src.areas {
			if a.Unreserved < needed {
				continue
			}
			if !canSplit && a.Count < needed {
				continue
			}
			return a
		}
	}

	if !maximiseCling {
		return findNormal(sources, needed, canSplit)
	}

	return nil
}
