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

// Package extalloc is the policy-driven extent allocation core of a
// logical-volume manager: given a set of sources (devices) and their
// fragmented free areas, it decides where to place one or more parallel
// logical areas (stripes, mirror copies, parity images) of a requested
// size, honoring a placement policy and optional redundancy and
// affinity constraints.
//
// extalloc knows nothing about physical volumes, on-disk metadata, or
// device-mapper targets; it consumes an abstract description of free
// space and produces an abstract placement result. It performs no I/O,
// holds no state across calls, and is safe to call from any single
// goroutine at a time (a single Request must not be shared between
// concurrent Allocate calls, since allocation mutates the Areas it
// references).
package extalloc
