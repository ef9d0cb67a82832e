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

// findClingByTags is PolicyCling's tag-affinity sibling: a candidate
// source matches a parallel-area source when they share a tag selected
// by req.ClingTagList (wildcard, or a literal tag name both must carry).
// Without a tag configuration it decays to PolicyCling; without
// parallel areas it decays to PolicyNormal.
func findClingByTags[H comparable](req *Request[H], needed uint64) *Area[H] {
	if len(req.ClingTagList) == 0 {
		return findCling(req.Sources, needed, req.ParallelAreas, req.CanSplit, req.MaximiseCling)
	}

	if len(req.ParallelAreas) == 0 {
		return findNormal(req.Sources, needed, req.CanSplit)
	}

	for _, src := range req.Sources {
		if !hasMatchingTagWithParallel(req, src) {
			continue
		}

		for _, a := range src.areas {
			if a.Unreserved < needed {
				continue
			}
			if !req.CanSplit && a.Count < needed {
				continue
			}
			return a
		}
	}

	if !req.MaximiseCling {
		return findNormal(req.Sources, needed, req.CanSplit)
	}

	return nil
}

// hasMatchingTagWithParallel reports whether src shares a configured tag
// with the source backing any segment of req.ParallelAreas.
func hasMatchingTagWithParallel[H comparable](req *Request[H], src *Source[H]) bool {
	for _, seg := range req.ParallelAreas {
		parallelSrc := findSourceByHandle(req.Sources, seg.SourceHandle)
		if parallelSrc == nil {
			continue
		}
		if sourcesHaveMatchingTags(req.ClingTagList, src, parallelSrc) {
			return true
		}
	}
	return false
}

func findSourceByHandle[H comparable](sources []*Source[H], handle H) *Source[H] {
	for _, s := range sources {
		if s.Handle == handle {
			return s
		}
	}
	return nil
}

// sourcesHaveMatchingTags evaluates tagList against the tag sets of a
// and b: a wildcard entry matches any tag they have in common, a literal
// entry requires both to carry that exact tag.
func sourcesHaveMatchingTags[H comparable](tagList []TagMatch, a, b *Source[H]) bool {
	for _, tm := range tagList {
		if tm.wildcard {
			if tagsIntersect(a.tags, b.tags) {
				return true
			}
			continue
		}

		if tm.tag == "" {
			continue
		}

		if a.HasTag(tm.tag) && b.HasTag(tm.tag) {
			return true
		}
	}
	return false
}

func tagsIntersect(a, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}
