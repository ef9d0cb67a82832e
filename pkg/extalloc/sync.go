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

// allocateMultiArea fills areas parallel areas in rounds of equal size,
// so every area ends up with an identical segment layout even when
// fragmentation forces the request to split. It runs only when more
// than one parallel area needs filling and splitting is permitted.
func allocateMultiArea[H comparable](req *Request[H], res *Result[H], usedSources *[]*Source[H], areas uint32, perArea uint64) uint64 {
	areaNeeded := make([]uint64, areas)
	for i := range areaNeeded {
		areaNeeded[i] = perArea
	}

	var allocated uint64

	for {
		if allSatisfied(areaNeeded) {
			break
		}

		selected := make([]*Area[H], areas)
		saved := make([]uint64, areas)
		incomplete := false

		for s := uint32(0); s < areas && !incomplete; s++ {
			if areaNeeded[s] == 0 {
				continue
			}

			area := findArea(req, areaNeeded[s])
			if area == nil {
				restoreAll(selected[:s], saved[:s])
				incomplete = true
				clearRound(areaNeeded, selected)
				break
			}

			if req.ParallelAreasSeparate && usedSources != nil {
				area = resolveDisjoint(req, areaNeeded[s], area, *usedSources, selected[:s])
				if area == nil {
					restoreAll(selected[:s], saved[:s])
					incomplete = true
					clearRound(areaNeeded, selected)
					break
				}
			}

			if idx := indexOfArea(selected[:s], area); idx >= 0 {
				for i := uint32(0); i < s; i++ {
					if selected[i] != nil && selected[i].Unreserved > 0 {
						saved[i] = selected[i].Unreserved
						selected[i].Unreserved = 0
					}
				}

				area = findArea(req, areaNeeded[s])

				for i := uint32(0); i < s; i++ {
					if saved[i] > 0 {
						selected[i].Unreserved = saved[i]
						saved[i] = 0
					}
				}

				if area == nil {
					incomplete = true
					clearRound(areaNeeded, selected)
					break
				}
			}

			selected[s] = area
		}

		roundSize := minRoundSize(selected, areaNeeded)

		// Restore any areas still hidden going into the commit step.
		for i := range saved {
			if saved[i] > 0 && selected[i] != nil {
				selected[i].Unreserved = saved[i]
			}
		}

		if roundSize == 0 || incomplete {
			break
		}

		for s := uint32(0); s < areas; s++ {
			area := selected[s]
			if area == nil {
				continue
			}

			seg := takeSegment(area, roundSize)
			res.Allocated[s] = append(res.Allocated[s], seg)
			areaNeeded[s] -= roundSize
			allocated += roundSize

			if req.ParallelAreasSeparate && usedSources != nil && !containsSource(*usedSources, area.source) {
				*usedSources = append(*usedSources, area.source)
			}
		}
	}

	return allocated
}

func allSatisfied(areaNeeded []uint64) bool {
	for _, n := range areaNeeded {
		if n > 0 {
			return false
		}
	}
	return true
}

// clearRound signals "stop, this round and the whole allocation are
// done" by zeroing every remaining need and discarding any selections.
func clearRound[H comparable](areaNeeded []uint64, selected []*Area[H]) {
	for i := range areaNeeded {
		areaNeeded[i] = 0
		selected[i] = nil
	}
}

func restoreAll[H comparable](selected []*Area[H], saved []uint64) {
	for i, a := range selected {
		if saved[i] > 0 && a != nil {
			a.Unreserved = saved[i]
		}
	}
}

func indexOfArea[H comparable](selected []*Area[H], area *Area[H]) int {
	for i, a := range selected {
		if a == area {
			return i
		}
	}
	return -1
}

func minRoundSize[H comparable](selected []*Area[H], areaNeeded []uint64) uint64 {
	var roundSize uint64
	for s, area := range selected {
		if area == nil {
			continue
		}
		size := area.Count
		if areaNeeded[s] < size {
			size = areaNeeded[s]
		}
		if roundSize == 0 || size < roundSize {
			roundSize = size
		}
	}
	return roundSize
}

// resolveDisjoint enforces the parallel_areas_separate constraint for
// one candidate area: if its source conflicts with a source already
// used (in a previous round, or by an earlier parallel area this
// round), every area of the conflicting source is temporarily hidden
// and selection retried, until a non-conflicting candidate is found or
// none remains. All temporarily hidden areas across every source are
// restored before returning.
func resolveDisjoint[H comparable](req *Request[H], needed uint64, area *Area[H], usedSources []*Source[H], selectedSoFar []*Area[H]) *Area[H] {
	for area != nil {
		conflict := containsSource(usedSources, area.source)
		if !conflict {
			for _, sel := range selectedSoFar {
				if sel != nil && sel.source == area.source {
					conflict = true
					break
				}
			}
		}
		if !conflict {
			break
		}

		for _, a := range area.source.areas {
			if a.Unreserved > 0 {
				a.Unreserved = 0
			}
		}

		area = findArea(req, needed)
	}

	for _, src := range req.Sources {
		for _, a := range src.areas {
			if a.Count > 0 && a.Unreserved == 0 {
				a.Unreserved = a.Count
			}
		}
	}

	return area
}
