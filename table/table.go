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

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// Table container: an ordered sequence of rows sharing the same columns.
//
// A typical use:
//   t := NewTable("year_month", "mor")
//   t.AddRow(Row{String("2024-01"), Number(7.1)}, Row{String("2024-02"), Missing()})
type Table struct {
	Header []string
	Rows   []Row
}

// NewTable creates a new Table instance with column headers. Each Row is
// expected to have exactly one cell per column.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table.
func (t *Table) AddRow(rows ...Row) {
	t.Rows = append(t.Rows, rows...)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Check that every row has exactly one cell per column and that column names
// are unique.
func (t *Table) Check() error {
	seen := make(map[string]struct{}, len(t.Header))
	for _, h := range t.Header {
		if _, ok := seen[h]; ok {
			return errors.Reason("duplicate column '%s'", h)
		}
		seen[h] = struct{}{}
	}
	for i, r := range t.Rows {
		if len(r) != len(t.Header) {
			return errors.Reason("row %d has %d cells, expected %d", i, len(r), len(t.Header))
		}
	}
	return nil
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int  // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool // whether to print the header, default - yes
	MaxColWidth int  // for WriteText only; 0 = unlimited, otherwise must be >= 4
}

// WriteCSV writes the entire table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := cw.Write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// ReadCSV reads a table written by WriteCSV. The first row is the header.
// Empty fields are missing values. A column is numeric when every non-empty
// value in it is a number in the form WriteCSV produces; otherwise all its
// values are strings. Thus "007", "1e3" and "NaN" stay text, and writing the
// result again reproduces the input.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, errors.Annotate(err, "failed to read CSV")
	}
	if len(records) == 0 {
		return nil, errors.Reason("CSV has no header")
	}
	t := NewTable(records[0]...)
	records = records[1:]
	numeric := make([]bool, len(t.Header))
	for j := range t.Header {
		numeric[j] = true
		for _, rec := range records {
			if rec[j] == "" {
				continue
			}
			if _, ok := parseNumber(rec[j]); !ok {
				numeric[j] = false
				break
			}
		}
	}
	for _, rec := range records {
		row := make(Row, len(rec))
		for j, s := range rec {
			switch {
			case s == "":
				row[j] = Missing()
			case numeric[j]:
				v, _ := parseNumber(s)
				row[j] = Number(v)
			default:
				row[j] = String(s)
			}
		}
		t.AddRow(row)
	}
	return t, nil
}

// parseNumber accepts only the canonical form of a finite number, as written
// by Cell.String.
func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || Number(v).IsMissing() {
		return 0, false
	}
	return v, Number(v).String() == s
}

// WriteText writes the table as a text formatted for ease of reading.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	var widths []int
	update := func(row []string) error {
		if len(row) == 0 {
			return errors.Reason("row size = 0")
		}
		if len(widths) == 0 {
			widths = make([]int, len(row))
		}
		if len(row) != len(widths) {
			return errors.Reason("row size [%d] != expected size [%d]",
				len(row), len(widths))
		}
		for i := range widths {
			if widths[i] < len(row[i]) {
				widths[i] = len(row[i])
				if p.MaxColWidth > 0 && widths[i] > p.MaxColWidth {
					widths[i] = p.MaxColWidth
				}
			}
		}
		return nil
	}

	write := func(row []string) error {
		trimmed := make([]string, len(row))
		for i, s := range row {
			trimmed[i] = s
			if len([]rune(s)) > widths[i] {
				r := []rune(s)[:widths[i]-2]
				trimmed[i] = string(r) + ".."
			}
			trimmed[i] = fmt.Sprintf("%[2]*[1]s", trimmed[i], widths[i])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(trimmed, " | "))
		return err
	}

	dashedRow := func() []string {
		row := make([]string, len(widths))
		for i, w := range widths {
			row[i] = strings.Repeat("-", w)
		}
		return row
	}

	if !p.NoHeader && len(t.Header) > 0 {
		if err := update(t.Header); err != nil {
			return errors.Annotate(err, "failed to update header widths")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := update(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to update row widths")
		}
	}

	if !p.NoHeader && len(t.Header) > 0 {
		if err := write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
		if err := write(dashedRow()); err != nil {
			return errors.Annotate(err, "failed to write header separator")
		}
	}
	for i, r := range t.Rows {
		if p.Rows > 0 && i >= p.Rows {
			break
		}
		if err := write(r.CSV()); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	return nil
}
