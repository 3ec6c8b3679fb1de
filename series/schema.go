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

// Package series turns raw provider records into canonical monthly tables and
// joins them.
package series

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/db"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/table"
)

// KeySpec says how to derive the monthly time key of a record. Either Field
// holds a "YYYY-MM" or date value, or YearField and MonthField hold the parts.
type KeySpec struct {
	Field      string
	YearField  string
	MonthField string
}

// Schema of a canonical table built from raw records.
type Schema struct {
	Drop []string // source fields to drop
	// Columns are the output fields in order, excluding the key column which is
	// always last. Empty means all the remaining fields, sorted by name.
	Columns   []string
	Numeric   []string // fields coerced to numbers
	Key       KeySpec
	KeyColumn string   // name of the time key column
	Partition []string // additional columns making a row unique
}

// Check the schema for consistency.
func (s *Schema) Check() error {
	if s.KeyColumn == "" {
		return errors.Reason("key column is required")
	}
	if s.Key.Field == "" && (s.Key.YearField == "" || s.Key.MonthField == "") {
		return errors.Reason("key requires either a field or year and month fields")
	}
	seen := map[string]bool{s.KeyColumn: true}
	for _, c := range s.Columns {
		if seen[c] {
			return errors.Reason("duplicate column '%s'", c)
		}
		seen[c] = true
	}
	if len(s.Columns) > 0 {
		for _, p := range s.Partition {
			if !seen[p] {
				return errors.Reason("partition column '%s' is not an output column", p)
			}
		}
	}
	return nil
}

// Stats of converting raw records into a table.
type Stats struct {
	Records int            // records in
	Rows    int            // rows out
	Skipped int            // records without a valid time key
	Missing map[string]int // missing cells per column
	Invalid map[string]int // present values that failed numeric coercion
}

func newStats(records int) Stats {
	return Stats{
		Records: records,
		Missing: make(map[string]int),
		Invalid: make(map[string]int),
	}
}

// String summary for logging.
func (s Stats) String() string {
	return fmt.Sprintf("%d records -> %d rows, %d skipped, missing: %v",
		s.Records, s.Rows, s.Skipped, s.Missing)
}

// numberCell coerces a JSON value to a number. The second result is false when
// a value was present but could not be coerced.
func numberCell(v any) (table.Cell, bool) {
	switch x := v.(type) {
	case nil:
		return table.Missing(), true
	case float64:
		return table.Number(x), !math.IsNaN(x) && !math.IsInf(x, 0)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return table.Missing(), false
		}
		return table.Number(f), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return table.Missing(), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return table.Missing(), false
		}
		c := table.Number(f)
		return c, !c.IsMissing()
	}
	return table.Missing(), false
}

// valueCell keeps a JSON value as is, as far as the cell types allow.
func valueCell(v any) table.Cell {
	switch x := v.(type) {
	case nil:
		return table.Missing()
	case float64:
		return table.Number(x)
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return table.Number(f)
		}
		return table.String(x.String())
	case string:
		return table.String(x)
	case bool:
		return table.String(strconv.FormatBool(x))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return table.String(fmt.Sprint(v))
	}
	return table.String(string(b))
}

// intValue reads an integer from a JSON number or a numeric string.
func intValue(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return 0, false
		}
		return int(x), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	}
	return 0, false
}

// yearMonth derives the time key from a JSON value.
func yearMonth(v any) (db.YearMonth, bool) {
	s, ok := v.(string)
	if !ok {
		return db.YearMonth{}, false
	}
	ym, err := db.ParseYearMonth(s)
	return ym, err == nil
}

// key derives the time key of the record. A record already carrying a valid
// key column is accepted when the source fields are absent, so normalized
// tables normalize to themselves.
func (k KeySpec) key(r source.Record, keyColumn string) (db.YearMonth, bool) {
	if k.Field != "" {
		if v, ok := r[k.Field]; ok {
			return yearMonth(v)
		}
	} else {
		yv, yok := r[k.YearField]
		mv, mok := r[k.MonthField]
		if yok || mok {
			y, ok1 := intValue(yv)
			m, ok2 := intValue(mv)
			if !ok1 || !ok2 {
				return db.YearMonth{}, false
			}
			ym, err := db.NewYearMonth(y, m)
			return ym, err == nil
		}
	}
	return yearMonth(r[keyColumn])
}

// sources are the fields consumed by the key derivation.
func (k KeySpec) sources() []string {
	if k.Field != "" {
		return []string{k.Field}
	}
	return []string{k.YearField, k.MonthField}
}
