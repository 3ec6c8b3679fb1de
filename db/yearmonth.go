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

package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// YearMonth is a calendar month, the time key shared by all monthly series.
// Its string form is "YYYY-MM".
type YearMonth struct {
	Year  uint16
	Month uint8
}

// NewYearMonth validates and creates a YearMonth.
func NewYearMonth(year, month int) (YearMonth, error) {
	if year < 1 || year > 9999 {
		return YearMonth{}, errors.Reason("year %d is out of range", year)
	}
	if month < 1 || month > 12 {
		return YearMonth{}, errors.Reason("month %d is out of range", month)
	}
	return YearMonth{Year: uint16(year), Month: uint8(month)}, nil
}

// ParseYearMonth accepts "YYYY-MM", "YYYY-M" or any date string understood by
// NewDateFromString, in which case the day is discarded.
func ParseYearMonth(s string) (YearMonth, error) {
	s = strings.TrimSpace(s)
	if parts := strings.Split(s, "-"); len(parts) == 2 {
		y, yErr := strconv.Atoi(parts[0])
		m, mErr := strconv.Atoi(parts[1])
		if yErr == nil && mErr == nil {
			ym, err := NewYearMonth(y, m)
			return ym, errors.Annotate(err, "invalid year-month '%s'", s)
		}
	}
	d, err := NewDateFromString(s)
	if err != nil {
		return YearMonth{}, errors.Annotate(err, "invalid year-month '%s'", s)
	}
	if d.IsZero() {
		return YearMonth{}, errors.Reason("zero date is not a valid year-month")
	}
	return d.YearMonth(), nil
}

// String representation "YYYY-MM", with the month zero-padded.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, ym.Month)
}

func (ym YearMonth) IsZero() bool { return ym.Year == 0 && ym.Month == 0 }
