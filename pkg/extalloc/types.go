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

import (
	"flag"
	"fmt"

	logger "github.com/volgroup/extalloc/pkg/log"
)

const (
	logSource = "extalloc"
	debugFlag = "extalloc-debug"
)

// debug enables Debug-level tracing on the package default logger. It has
// no effect on allocation behavior, only on diagnostic output.
var debug bool

func init() {
	flag.BoolVar(&debug, debugFlag, false, "enable extalloc debug log tracing")
}

// log is our package logger instance.
var log = logger.NewLogger(logSource)

// Policy selects among the placement strategies an allocation request can use.
type Policy int

const (
	// PolicyAnywhere takes the first area with any free space, splitting unconditionally.
	PolicyAnywhere Policy = iota
	// PolicyNormal prefers large areas to reduce fragmentation, splitting only when asked to.
	PolicyNormal
	// PolicyContiguous requires the whole request to fit a single area; never splits.
	PolicyContiguous
	// PolicyCling prefers sources already used by an existing parallel placement.
	PolicyCling
	// PolicyClingByTags prefers sources sharing a tag with an existing parallel placement.
	PolicyClingByTags
)

// Valid reports whether p is one of the known policies.
func (p Policy) Valid() bool {
	switch p {
	case PolicyAnywhere, PolicyNormal, PolicyContiguous, PolicyCling, PolicyClingByTags:
		return true
	default:
		return false
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyAnywhere:
		return "anywhere"
	case PolicyNormal:
		return "normal"
	case PolicyContiguous:
		return "contiguous"
	case PolicyCling:
		return "cling"
	case PolicyClingByTags:
		return "cling-by-tags"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// TagMatch is one entry of a cling-by-tags affinity configuration: either
// the wildcard (match on any tag the two sources have in common) or a
// literal tag name that both sources must carry.
type TagMatch struct {
	wildcard bool
	tag      string
}

// TagWildcard returns a TagMatch that matches any tag two sources share.
func TagWildcard() TagMatch { return TagMatch{wildcard: true} }

// TagLiteral returns a TagMatch that requires both sources to carry tag.
func TagLiteral(tag string) TagMatch { return TagMatch{tag: tag} }

// Area is a contiguous run of free extents inside a single Source.
type Area[H comparable] struct {
	// Start is the extent index, inside the owning Source, of this area.
	Start uint64
	// Count is the number of contiguous free extents remaining.
	Count uint64
	// Unreserved is the subset of Count not yet tentatively set aside by
	// the allocator currently examining it. Equal to Count at rest;
	// temporarily driven to 0 to hide a candidate during selection.
	Unreserved uint64
	// SourceHandle is propagated into every Segment cut from this area.
	SourceHandle H

	source *Source[H] // weak back-reference: lookup only, never lifetime.
}

// Source returns the owning Source of this area.
func (a *Area[H]) Source() *Source[H] { return a.source }

// Source abstracts one device contributing free extents to a request.
type Source[H comparable] struct {
	// Handle is an opaque, caller-supplied identifier for this source.
	// extalloc never dereferences it, only compares it for equality.
	Handle H
	// PECount is an informational total-extent count for the device;
	// extalloc does not use it for placement decisions.
	PECount uint64

	areas []*Area[H]          // kept sorted by Count, descending.
	tags  map[string]struct{} // consulted only by PolicyClingByTags.
}

// NewSource creates a Source with no areas and no tags.
func NewSource[H comparable](handle H) *Source[H] {
	return &Source[H]{Handle: handle, tags: make(map[string]struct{})}
}

// NewSourceList returns a fresh, empty, ordered collection of sources.
// It exists for parity with the C API's source_list_create; callers may
// just as well build a []*Source[H] literal or with append.
func NewSourceList[H comparable]() []*Source[H] { return nil }

// AddArea inserts a new free area into the source, maintaining the
// size-descending sort order the policy selector relies on. Returns
// false (and does nothing) for a zero-length area.
func (s *Source[H]) AddArea(start, count uint64) bool {
	if count == 0 {
		return false
	}

	area := &Area[H]{
		Start:        start,
		Count:        count,
		Unreserved:   count,
		SourceHandle: s.Handle,
		source:       s,
	}
	s.insertSorted(area)

	return true
}

// insertSorted inserts area keeping s.areas sorted by Count, descending.
// Linear scan from the head: fragment counts per device are small, so
// this stays cheap, same tradeoff the C source makes.
func (s *Source[H]) insertSorted(area *Area[H]) {
	for i, a := range s.areas {
		if area.Count > a.Count {
			s.areas = append(s.areas, nil)
			copy(s.areas[i+1:], s.areas[i:])
			s.areas[i] = area
			return
		}
	}
	s.areas = append(s.areas, area)
}

// Areas returns the source's free areas, largest first.
func (s *Source[H]) Areas() []*Area[H] { return s.areas }

// AddTag adds a tag to this source's tag set.
func (s *Source[H]) AddTag(tag string) {
	if s.tags == nil {
		s.tags = make(map[string]struct{})
	}
	s.tags[tag] = struct{}{}
}

// HasTag reports whether this source carries tag.
func (s *Source[H]) HasTag(tag string) bool {
	_, ok := s.tags[tag]
	return ok
}

// Tags returns this source's tag set; the returned slice is unordered.
func (s *Source[H]) Tags() []string {
	tags := make([]string, 0, len(s.tags))
	for t := range s.tags {
		tags = append(tags, t)
	}
	return tags
}

// Segment is one contiguous allocation cut from a single Area.
type Segment[H comparable] struct {
	SourceHandle H
	Start        uint64
	ExtentCount  uint64
}

// Request is the immutable (save for the Areas it references) input to
// one Allocate call.
type Request[H comparable] struct {
	// Sources lists the devices available for this request.
	Sources []*Source[H]

	// AreaCount is the number of parallel data areas (stripes/mirror images).
	AreaCount uint32
	// ParityCount is the number of additional parity areas (RAID).
	ParityCount uint32
	// LogAreaCount, LogLen, MetadataAreaCount, and RegionSize size
	// auxiliary parallel areas (log/metadata). This core folds
	// LogAreaCount into the synchronized loop's uniform per-area
	// target; see DESIGN.md for the variable-sized-log Open Question.
	LogAreaCount      uint32
	LogLen            uint64
	MetadataAreaCount uint32
	RegionSize        uint64

	// NewExtents is the total extent count to allocate across all
	// parallel areas.
	NewExtents uint64
	// AreaMultiple divides NewExtents to get the per-area target; 0
	// means "don't divide" (per-area target is NewExtents itself).
	AreaMultiple uint64

	// Policy selects the placement strategy.
	Policy Policy

	// ParallelAreas is an existing placement layout used by
	// PolicyCling/PolicyClingByTags for affinity.
	ParallelAreas []Segment[H]
	// ClingTagList configures PolicyClingByTags matching; empty means
	// "fall back to identity-based cling".
	ClingTagList []TagMatch

	// CanSplit allows a request to be satisfied with more than one segment.
	CanSplit bool
	// ApproxAlloc tells the caller a partial result is acceptable;
	// it never changes what the allocator itself does.
	ApproxAlloc bool
	// MaximiseCling requires cling/tag affinity or failure, instead of
	// falling back to PolicyNormal, in the selector's second pass.
	MaximiseCling bool
	// MirrorLogsSeparate additionally constrains log-area slots to
	// disjoint sources; accepted for forward compatibility with the
	// bridge layer, but not yet enforced (see DESIGN.md).
	MirrorLogsSeparate bool
	// ParallelAreasSeparate requires the N parallel areas of any single
	// round to use pairwise distinct sources (mirror/RAID redundancy).
	ParallelAreasSeparate bool
}

// Result is the immutable output of one Allocate call.
type Result[H comparable] struct {
	TotalExtents uint64
	AreaCount    uint32
	ParityCount  uint32
	TotalAreaLen uint64
	// Allocated[i] is the ordered list of segments placed in parallel
	// area i, for i in [0, AreaCount+ParityCount+LogAreaCount).
	Allocated [][]Segment[H]
}

// HandleOption configures an AllocHandle built with NewHandle.
type HandleOption[H comparable] func(*AllocHandle[H])

// WithLogger overrides the Logger an AllocHandle traces through.
func WithLogger[H comparable](l logger.Logger) HandleOption[H] {
	return func(h *AllocHandle[H]) { h.Logger = l }
}

// WithDefaultPolicy sets the Policy newly built requests may default to;
// Allocate itself always uses Request.Policy and ignores this field, it
// exists for callers that want to stamp a default onto requests they build.
func WithDefaultPolicy[H comparable](p Policy) HandleOption[H] {
	return func(h *AllocHandle[H]) { h.DefaultPolicy = p }
}

// AllocHandle is a short-lived context bundling a logger and a default
// policy. Its lifetime is one Allocate call: build it, call Allocate,
// then Destroy it. Go's garbage collector makes Destroy a formality
// (there is no arena to tear down), but it exists for symmetry with the
// handle_create/handle_destroy pair external callers expect.
type AllocHandle[H comparable] struct {
	Logger        logger.Logger
	DefaultPolicy Policy
}

// NewHandle creates an allocation handle.
func NewHandle[H comparable](opts ...HandleOption[H]) *AllocHandle[H] {
	l := log
	l.EnableDebug(debug)

	h := &AllocHandle[H]{
		Logger:        l,
		DefaultPolicy: PolicyNormal,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Destroy releases any resources held by the handle. Memory is garbage
// collected; this is a no-op kept for call-site symmetry with the C API.
func (h *AllocHandle[H]) Destroy() {}
