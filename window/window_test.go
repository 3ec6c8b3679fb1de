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

package window

import (
	"testing"

	"github.com/stockparfait/macro/db"

	. "github.com/smartystreets/goconvey/convey"
)

func d(s string) db.Date {
	res, err := db.NewDateFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

func w(start, end string) Window {
	return Window{Start: d(start), End: d(end)}
}

// checkCover verifies that windows exactly cover [start, end] with no gaps or
// overlaps, each within one calendar month.
func checkCover(windows []Window, start, end db.Date) {
	So(len(windows), ShouldBeGreaterThan, 0)
	So(windows[0].Start, ShouldResemble, start)
	So(windows[len(windows)-1].End, ShouldResemble, end)
	for i, win := range windows {
		So(win.Start.After(win.End), ShouldBeFalse)
		So(win.Start.YearMonth(), ShouldResemble, win.End.YearMonth())
		if i > 0 {
			prev := windows[i-1]
			So(prev.End.NextMonthStart(), ShouldResemble, win.Start)
			So(prev.End, ShouldResemble, prev.End.MonthEnd())
		}
	}
}

func TestWindow(t *testing.T) {
	t.Parallel()

	Convey("Split works", t, func() {
		Convey("across a year boundary", func() {
			windows, err := Split(d("2023-11-15"), d("2024-01-10"))
			So(err, ShouldBeNil)
			So(windows, ShouldResemble, []Window{
				w("2023-11-15", "2023-11-30"),
				w("2023-12-01", "2023-12-31"),
				w("2024-01-01", "2024-01-10"),
			})
			checkCover(windows, d("2023-11-15"), d("2024-01-10"))
		})

		Convey("within a single month", func() {
			windows, err := Split(d("2024-02-03"), d("2024-02-20"))
			So(err, ShouldBeNil)
			So(windows, ShouldResemble, []Window{w("2024-02-03", "2024-02-20")})
		})

		Convey("single day", func() {
			windows, err := Split(d("2024-02-29"), d("2024-02-29"))
			So(err, ShouldBeNil)
			So(windows, ShouldResemble, []Window{w("2024-02-29", "2024-02-29")})
		})

		Convey("full months of the original interest range", func() {
			windows, err := Split(d("2023-01-01"), d("2024-11-30"))
			So(err, ShouldBeNil)
			So(len(windows), ShouldEqual, 23)
			So(windows[1], ShouldResemble, w("2023-02-01", "2023-02-28"))
			So(windows[13], ShouldResemble, w("2024-02-01", "2024-02-29"))
			checkCover(windows, d("2023-01-01"), d("2024-11-30"))
		})

		Convey("many ranges cover exactly", func() {
			starts := []string{"2020-01-31", "2021-12-31", "2023-02-28", "2024-06-15"}
			ends := []string{"2020-03-01", "2022-01-01", "2024-02-29", "2026-01-31"}
			for i := range starts {
				windows, err := Split(d(starts[i]), d(ends[i]))
				So(err, ShouldBeNil)
				checkCover(windows, d(starts[i]), d(ends[i]))
			}
		})

		Convey("is restartable", func() {
			w1, err1 := Split(d("2023-11-15"), d("2024-01-10"))
			w2, err2 := Split(d("2023-11-15"), d("2024-01-10"))
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)
			So(w1, ShouldResemble, w2)
		})

		Convey("rejects invalid ranges", func() {
			_, err := Split(d("2024-01-10"), d("2023-11-15"))
			So(err, ShouldNotBeNil)
			_, err = Split(db.Date{}, d("2023-11-15"))
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Whole works", t, func() {
		windows, err := Whole(d("2023-01-01"), d("2024-11-30"))
		So(err, ShouldBeNil)
		So(windows, ShouldResemble, []Window{w("2023-01-01", "2024-11-30")})
		So(windows[0].String(), ShouldEqual, "2023-01-01..2024-11-30")

		_, err = Whole(d("2024-11-30"), d("2023-01-01"))
		So(err, ShouldNotBeNil)
	})
}
