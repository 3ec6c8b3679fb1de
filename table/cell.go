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
	"math"
	"strconv"
)

// Kind of a Cell value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNumber
	KindString
)

// Cell of a table Row which is a union of string or number (float64), or the
// missing-value marker. The zero value is missing. A missing cell is distinct
// from zero. The empty string is missing too: CSV has no other way to write
// either of them.
type Cell struct {
	kind   Kind
	number float64
	string string
}

// Number creates a numeric cell. NaN and infinities are stored as missing.
func Number(n float64) Cell {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return Missing()
	}
	return Cell{kind: KindNumber, number: n}
}

// String creates a text cell. The empty string is stored as missing.
func String(s string) Cell {
	if s == "" {
		return Missing()
	}
	return Cell{kind: KindString, string: s}
}

// Missing creates the missing-value marker.
func Missing() Cell { return Cell{} }

func (c Cell) Kind() Kind       { return c.kind }
func (c Cell) IsMissing() bool { return c.kind == KindMissing }
func (c Cell) IsNumber() bool  { return c.kind == KindNumber }

// Float returns the numeric value, if the cell is a number.
func (c Cell) Float() (float64, bool) {
	return c.number, c.kind == KindNumber
}

// Value converts the cell back to the value encoding/json would produce:
// float64, string or nil.
func (c Cell) Value() any {
	switch c.kind {
	case KindNumber:
		return c.number
	case KindString:
		return c.string
	}
	return nil
}

// String is the CSV representation of the cell: numbers in the shortest form
// that parses back to the same value, missing as an empty field.
func (c Cell) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.number, 'f', -1, 64)
	case KindString:
		return c.string
	}
	return ""
}

// Row of a table.
type Row []Cell

// CSV is an encoding/csv compatible row representation.
func (r Row) CSV() []string {
	res := make([]string, len(r))
	for i, c := range r {
		res[i] = c.String()
	}
	return res
}
