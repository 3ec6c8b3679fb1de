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
	"testing"

	"github.com/stockparfait/macro/db"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMonthly(t *testing.T) {
	t.Parallel()
	Convey("Monthly works correctly", t, func() {
		jan := db.YearMonth{Year: 2024, Month: 1}
		feb := db.YearMonth{Year: 2024, Month: 2}
		dec := db.YearMonth{Year: 2023, Month: 12}

		m, err := NewMonthly("mor", "mlr")
		So(err, ShouldBeNil)

		Convey("means per month and field", func() {
			So(m.Add(jan, "mor", 3.0), ShouldBeNil)
			So(m.Add(jan, "mor", 3.5), ShouldBeNil)
			So(m.Add(jan, "mlr", math.NaN()), ShouldBeNil)
			So(m.Add(feb, "mlr", 5.0), ShouldBeNil)
			So(m.Add(dec, "mor", 1.0), ShouldBeNil)

			So(m.Months(), ShouldResemble, []db.YearMonth{dec, jan, feb})

			v, ok := m.Mean(jan, "mor")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 3.25)

			_, ok = m.Mean(jan, "mlr")
			So(ok, ShouldBeFalse)
			_, ok = m.Mean(feb, "mor")
			So(ok, ShouldBeFalse)
			_, ok = m.Mean(db.YearMonth{Year: 2020, Month: 1}, "mor")
			So(ok, ShouldBeFalse)
		})

		Convey("touched month with no values", func() {
			m.Touch(feb)
			So(m.Months(), ShouldResemble, []db.YearMonth{feb})
			_, ok := m.Mean(feb, "mor")
			So(ok, ShouldBeFalse)
		})

		Convey("errors", func() {
			So(m.Add(jan, "nope", 1.0), ShouldNotBeNil)
			_, err := NewMonthly("a", "a")
			So(err, ShouldNotBeNil)
		})
	})
}
