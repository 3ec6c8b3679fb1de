// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Sample stores an unordered set of observations. Missing observations (NaN)
// are not stored, so statistics are computed over the present values only.
type Sample struct {
	data []float64
	mean *float64 // cached
}

// NewSample creates a new Sample from the non-missing values of data. The
// input is copied.
func NewSample(data ...float64) *Sample {
	s := &Sample{}
	for _, x := range data {
		s.Add(x)
	}
	return s
}

// Add an observation. NaN and infinities are ignored.
func (s *Sample) Add(x float64) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return
	}
	s.data = append(s.data, x)
	s.mean = nil
}

// Mean of the Sample, cached. The bool is false for an empty Sample, whose mean
// is undefined.
func (s *Sample) Mean() (float64, bool) {
	if len(s.data) == 0 {
		return 0, false
	}
	if s.mean == nil {
		m := stat.Mean(s.data, nil)
		s.mean = &m
	}
	return *s.mean, true
}
