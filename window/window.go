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

// Package window splits date ranges into the sub-ranges used as the bounds of
// individual API calls.
package window

import (
	"fmt"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/db"
)

// Window is an inclusive calendar date range, Start <= End.
type Window struct {
	Start db.Date
	End   db.Date
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start, w.End)
}

func checkRange(start, end db.Date) error {
	if start.IsZero() || end.IsZero() {
		return errors.Reason("date range [%s, %s] has a zero bound", start, end)
	}
	if start.After(end) {
		return errors.Reason("start %s is after end %s", start, end)
	}
	return nil
}

// Split the inclusive range [start, end] into contiguous, non-overlapping
// windows, each contained in a single calendar month. The first and last
// windows may be partial months.
func Split(start, end db.Date) ([]Window, error) {
	if err := checkRange(start, end); err != nil {
		return nil, errors.Annotate(err, "cannot split")
	}
	var windows []Window
	for s := start; !s.After(end); s = s.NextMonthStart() {
		windows = append(windows, Window{
			Start: s,
			End:   db.MinDate(s.MonthEnd(), end),
		})
	}
	return windows, nil
}

// Whole returns the entire range as a single window, for providers that
// accept an arbitrary range in one call.
func Whole(start, end db.Date) ([]Window, error) {
	if err := checkRange(start, end); err != nil {
		return nil, errors.Annotate(err, "invalid window")
	}
	return []Window{{Start: start, End: end}}, nil
}
