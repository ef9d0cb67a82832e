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
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// perAreaTarget computes the per-area extent target: NewExtents divided
// by AreaMultiple, or NewExtents itself when AreaMultiple is 0.
func perAreaTarget[H comparable](req *Request[H]) uint64 {
	if req.AreaMultiple != 0 {
		return req.NewExtents / req.AreaMultiple
	}
	return req.NewExtents
}

// validateRequest collects every malformed-request problem with req
// instead of stopping at the first one.
func validateRequest[H comparable](req *Request[H]) error {
	var result *multierror.Error

	if req == nil {
		result = multierror.Append(result, errors.New("allocation request is nil"))
		return result.ErrorOrNil()
	}

	if len(req.Sources) == 0 {
		result = multierror.Append(result, errors.New("allocation request has no sources"))
	}

	if !req.Policy.Valid() {
		result = multierror.Append(result, errors.Errorf("allocation request has unknown policy %v", req.Policy))
	}

	if req.LogAreaCount > 0 && req.LogLen != 0 {
		target := perAreaTarget(req)
		if req.LogLen != target {
			result = multierror.Append(result, errors.Errorf(
				"request asks for %d log areas of length %d, distinct from the per-area "+
					"target %d; variable-sized auxiliary areas are not supported by this core",
				req.LogAreaCount, req.LogLen, target))
		}
	}

	return result.ErrorOrNil()
}

// Allocate is the core's single entry point. It validates req, dispatches
// to the simple or synchronized allocator, and returns a populated
// Result. A non-nil error means the request was malformed; it is never
// returned merely because the request could not be fully satisfied —
// inspect Result.TotalExtents for that (see the package doc and
// SPEC_FULL.md §4.7 for the full error taxonomy).
func Allocate[H comparable](h *AllocHandle[H], req *Request[H]) (*Result[H], error) {
	if h == nil {
		h = NewHandle[H]()
	}

	if err := validateRequest(req); err != nil {
		return nil, errors.Wrap(err, "malformed allocation request")
	}

	areas := req.AreaCount + req.ParityCount + req.LogAreaCount
	if areas == 0 {
		areas = 1
	}
	perArea := perAreaTarget(req)

	resAreaCount := req.AreaCount
	if resAreaCount == 0 {
		resAreaCount = 1
	}

	res := &Result[H]{
		AreaCount:    resAreaCount,
		ParityCount:  req.ParityCount,
		TotalAreaLen: perArea,
		Allocated:    make([][]Segment[H], areas),
	}

	var usedSources []*Source[H]
	var usedSourcesPtr *[]*Source[H]
	if req.ParallelAreasSeparate && areas > 1 {
		usedSourcesPtr = &usedSources
	}

	h.Logger.Debug("allocate: policy=%s areas=%d per_area=%d can_split=%v approx=%v separate=%v",
		req.Policy, areas, perArea, req.CanSplit, req.ApproxAlloc, req.ParallelAreasSeparate)

	var allocated uint64
	if areas > 1 && req.CanSplit {
		allocated = allocateMultiArea(req, res, usedSourcesPtr, areas, perArea)
	} else {
		allocated = allocateSimple(req, res, usedSourcesPtr, areas, perArea)
	}

	res.TotalExtents = allocated

	switch {
	case areas > 1 && req.AreaMultiple != 0 && req.AreaCount+req.ParityCount > 0:
		res.TotalAreaLen = allocated / uint64(req.AreaCount+req.ParityCount)
	case areas > 1:
		res.TotalAreaLen = allocated / uint64(areas)
	}

	h.Logger.Debug("allocate: total_extents=%d total_area_len=%d", res.TotalExtents, res.TotalAreaLen)

	return res, nil
}
