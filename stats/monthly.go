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
	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/db"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Monthly groups observations of a fixed set of fields by calendar month.
type Monthly struct {
	fields []string
	index  map[string]int
	groups map[db.YearMonth][]*Sample
}

// NewMonthly creates an empty grouping for the fields. Field names must be
// unique.
func NewMonthly(fields ...string) (*Monthly, error) {
	m := &Monthly{
		fields: fields,
		index:  make(map[string]int),
		groups: make(map[db.YearMonth][]*Sample),
	}
	for i, f := range fields {
		if _, ok := m.index[f]; ok {
			return nil, errors.Reason("duplicate field '%s'", f)
		}
		m.index[f] = i
	}
	return m, nil
}

// Touch makes sure the month is present even when none of its values are.
func (m *Monthly) Touch(ym db.YearMonth) []*Sample {
	g, ok := m.groups[ym]
	if !ok {
		g = make([]*Sample, len(m.fields))
		for i := range g {
			g[i] = NewSample()
		}
		m.groups[ym] = g
	}
	return g
}

// Add an observation of the field to the month. NaN is treated as missing: it
// registers the month but not the value.
func (m *Monthly) Add(ym db.YearMonth, field string, x float64) error {
	i, ok := m.index[field]
	if !ok {
		return errors.Reason("unknown field '%s'", field)
	}
	m.Touch(ym)[i].Add(x)
	return nil
}

func monthOrd(ym db.YearMonth) int { return int(ym.Year)*100 + int(ym.Month) }

// Months in ascending order.
func (m *Monthly) Months() []db.YearMonth {
	byOrd := make(map[int]db.YearMonth, len(m.groups))
	for ym := range m.groups {
		byOrd[monthOrd(ym)] = ym
	}
	ords := maps.Keys(byOrd)
	slices.Sort(ords)
	res := make([]db.YearMonth, len(ords))
	for i, o := range ords {
		res[i] = byOrd[o]
	}
	return res
}

// Mean of the field in the month. The bool is false when the month has no
// present value of the field.
func (m *Monthly) Mean(ym db.YearMonth, field string) (float64, bool) {
	g, ok := m.groups[ym]
	if !ok {
		return 0, false
	}
	i, ok := m.index[field]
	if !ok {
		return 0, false
	}
	return g[i].Mean()
}
