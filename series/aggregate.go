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

package series

import (
	"math"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/stats"
	"github.com/stockparfait/macro/table"
)

// AggregateSpec configures the monthly averaging of sub-monthly observations.
type AggregateSpec struct {
	Timestamp string   // field with a date or "YYYY-MM"
	Numeric   []string // fields to average, in output order
	KeyColumn string   // name of the time key column, placed last
}

// Check the spec for consistency.
func (s *AggregateSpec) Check() error {
	if s.Timestamp == "" || s.KeyColumn == "" {
		return errors.Reason("timestamp and key column are required")
	}
	if len(s.Numeric) == 0 {
		return errors.Reason("at least one numeric field is required")
	}
	for _, f := range s.Numeric {
		if f == s.KeyColumn {
			return errors.Reason("numeric field '%s' clashes with the key column", f)
		}
	}
	return nil
}

// Aggregate groups the records by the calendar month of their timestamp and
// averages every numeric field over its present values. A month with no
// present value of a field yields a missing cell. Every configured field is in
// the output, even if no record carried it. Rows are in ascending month order.
func Aggregate(records []source.Record, s AggregateSpec) (*table.Table, Stats, error) {
	st := newStats(len(records))
	if err := s.Check(); err != nil {
		return nil, st, errors.Annotate(err, "invalid aggregation")
	}
	groups, err := stats.NewMonthly(s.Numeric...)
	if err != nil {
		return nil, st, errors.Annotate(err, "invalid aggregation")
	}
	for _, r := range records {
		ym, ok := yearMonth(r[s.Timestamp])
		if !ok {
			st.Skipped++
			continue
		}
		groups.Touch(ym)
		for _, f := range s.Numeric {
			c, valid := numberCell(r[f])
			if !valid {
				st.Invalid[f]++
			}
			x, ok := c.Float()
			if !ok {
				x = math.NaN()
			}
			if err := groups.Add(ym, f, x); err != nil {
				return nil, st, errors.Annotate(err, "failed to add '%s'", f)
			}
		}
	}
	t := table.NewTable(append(append([]string{}, s.Numeric...), s.KeyColumn)...)
	for _, ym := range groups.Months() {
		row := make(table.Row, 0, len(t.Header))
		for _, f := range s.Numeric {
			m, ok := groups.Mean(ym, f)
			if !ok {
				st.Missing[f]++
				row = append(row, table.Missing())
				continue
			}
			row = append(row, table.Number(m))
		}
		row = append(row, table.String(ym.String()))
		t.AddRow(row)
	}
	st.Rows = len(t.Rows)
	return t, st, nil
}
