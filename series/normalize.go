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
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/table"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// outputColumns resolves the ordered non-key output columns.
func (s *Schema) outputColumns(records []source.Record) []string {
	if len(s.Columns) > 0 {
		return s.Columns
	}
	exclude := map[string]bool{s.KeyColumn: true}
	for _, f := range s.Drop {
		exclude[f] = true
	}
	for _, f := range s.Key.sources() {
		exclude[f] = true
	}
	fields := make(map[string]struct{})
	for _, r := range records {
		for f := range r {
			if !exclude[f] {
				fields[f] = struct{}{}
			}
		}
	}
	cols := maps.Keys(fields)
	slices.Sort(cols)
	return cols
}

// Normalize converts raw records into a canonical table: dropped fields are
// removed, numeric fields coerced (unparseable values become missing), the
// time key derived into the key column placed last. Records without a valid
// key are skipped. Rows are sorted by the time key and partition columns, and
// a repeated (key, partition) is an error.
func Normalize(records []source.Record, s Schema) (*table.Table, Stats, error) {
	stats := newStats(len(records))
	if err := s.Check(); err != nil {
		return nil, stats, errors.Annotate(err, "invalid schema")
	}
	dropped := make(map[string]bool)
	for _, f := range s.Drop {
		dropped[f] = true
	}
	numeric := make(map[string]bool)
	for _, f := range s.Numeric {
		numeric[f] = true
	}
	cols := s.outputColumns(records)
	header := append(append([]string{}, cols...), s.KeyColumn)
	t := table.NewTable(header...)
	partIdx := make([]int, len(s.Partition))
	for i, p := range s.Partition {
		if partIdx[i] = slices.Index(cols, p); partIdx[i] < 0 {
			return nil, stats, errors.Reason("partition column '%s' is not an output column", p)
		}
	}

	byKey := make(map[string]table.Row)
	for _, r := range records {
		ym, ok := s.Key.key(r, s.KeyColumn)
		if !ok {
			stats.Skipped++
			continue
		}
		row := make(table.Row, len(header))
		for i, c := range cols {
			v := r[c]
			if dropped[c] {
				v = nil
			}
			if numeric[c] {
				var valid bool
				if row[i], valid = numberCell(v); !valid {
					stats.Invalid[c]++
				}
			} else {
				row[i] = valueCell(v)
			}
		}
		row[len(cols)] = table.String(ym.String())
		parts := []string{ym.String()}
		for _, i := range partIdx {
			parts = append(parts, row[i].String())
		}
		k := strings.Join(parts, "\x00")
		if _, ok := byKey[k]; ok {
			return nil, stats, errors.Reason("duplicate row for %s in %v",
				strings.Join(parts, ", "), append([]string{s.KeyColumn}, s.Partition...))
		}
		byKey[k] = row
	}
	keys := maps.Keys(byKey)
	slices.Sort(keys)
	for _, k := range keys {
		row := byKey[k]
		for i, c := range header {
			if row[i].IsMissing() {
				stats.Missing[c]++
			}
		}
		t.AddRow(row)
	}
	stats.Rows = len(t.Rows)
	return t, stats, nil
}

// Records converts a table back into raw records; missing cells become nil.
func Records(t *table.Table) []source.Record {
	res := make([]source.Record, len(t.Rows))
	for i, row := range t.Rows {
		r := make(source.Record, len(t.Header))
		for j, c := range t.Header {
			r[c] = row[j].Value()
		}
		res[i] = r
	}
	return res
}
