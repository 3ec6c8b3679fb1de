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
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/table"

	. "github.com/smartystreets/goconvey/convey"
)

var cpiSchema = Schema{
	Drop:      []string{"index_id", "index_description", "region_id", "region_name"},
	Columns:   []string{"base_year", "price_index", "mom", "yoy", "aoa"},
	Numeric:   []string{"price_index", "mom", "yoy", "aoa"},
	Key:       KeySpec{YearField: "year", MonthField: "month"},
	KeyColumn: "year_month",
}

var interestSpec = AggregateSpec{
	Timestamp: "period",
	Numeric:   []string{"mor", "mlr"},
	KeyColumn: "year_month",
}

func cpiRecords() []source.Record {
	return []source.Record{
		{"year": "2024", "month": "2", "base_year": "2019", "price_index": "107.9",
			"mom": "-0.2", "yoy": "-0.77", "aoa": "-0.94", "index_id": "0000000000000000",
			"region_id": 5.0, "region_name": "ทั่วประเทศ"},
		{"year": 2024.0, "month": 1.0, "base_year": "2019", "price_index": 108.1,
			"mom": "0.1", "yoy": "-1.1", "aoa": "-1.1", "index_id": "0000000000000000",
			"region_id": 5.0, "region_name": "ทั่วประเทศ"},
	}
}

func interestRecords() []source.Record {
	return []source.Record{
		{"period": "2024-01-15", "mor": "7.125", "mlr": 6.5},
		{"period": "2024-01-31", "mor": 7.375, "mlr": ""},
		{"period": "2024-02-01", "mor": "n/a"},
		{"period": "bad", "mor": 1.0},
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	Convey("Normalize works", t, func() {
		Convey("CPI-like records", func() {
			tbl, st, err := Normalize(cpiRecords(), cpiSchema)
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{
				"base_year", "price_index", "mom", "yoy", "aoa", "year_month"})
			So(tbl.Rows, ShouldResemble, []table.Row{
				{table.String("2019"), table.Number(108.1), table.Number(0.1),
					table.Number(-1.1), table.Number(-1.1), table.String("2024-01")},
				{table.String("2019"), table.Number(107.9), table.Number(-0.2),
					table.Number(-0.77), table.Number(-0.94), table.String("2024-02")},
			})
			So(st.Records, ShouldEqual, 2)
			So(st.Rows, ShouldEqual, 2)
			So(st.Skipped, ShouldEqual, 0)
			So(len(st.Missing), ShouldEqual, 0)
		})

		Convey("is idempotent", func() {
			tbl, _, err := Normalize(cpiRecords(), cpiSchema)
			So(err, ShouldBeNil)
			tbl2, _, err := Normalize(Records(tbl), cpiSchema)
			So(err, ShouldBeNil)
			So(tbl2, ShouldResemble, tbl)

			s := Schema{Numeric: []string{"rate"}, Key: KeySpec{Field: "period"}, KeyColumn: "period",
				Partition: []string{"currency_id"}}
			recs := []source.Record{
				{"period": "2024-01", "currency_id": "USD", "rate": "35.5"},
				{"period": "2024-01", "currency_id": "EUR", "rate": "oops"},
			}
			tbl, _, err = Normalize(recs, s)
			So(err, ShouldBeNil)
			tbl2, _, err = Normalize(Records(tbl), s)
			So(err, ShouldBeNil)
			So(tbl2, ShouldResemble, tbl)
		})

		Convey("coercion failures become missing and are counted", func() {
			s := Schema{
				Drop:      []string{"currency_name_eng"},
				Numeric:   []string{"buying", "selling"},
				Key:       KeySpec{Field: "period"},
				KeyColumn: "period",
				Partition: []string{"currency_id"},
			}
			recs := []source.Record{
				{"period": "2024-01", "currency_id": "USD", "currency_name_eng": "US Dollar",
					"buying": "35.125", "selling": "n/a"},
				{"period": "2024-01", "currency_id": "EUR", "buying": 38.5, "selling": 39.0},
				{"period": "", "currency_id": "JPY", "buying": 0.25},
			}
			tbl, st, err := Normalize(recs, s)
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"buying", "currency_id", "selling", "period"})
			So(tbl.Rows, ShouldResemble, []table.Row{
				{table.Number(38.5), table.String("EUR"), table.Number(39.0), table.String("2024-01")},
				{table.Number(35.125), table.String("USD"), table.Missing(), table.String("2024-01")},
			})
			So(st.Skipped, ShouldEqual, 1)
			So(st.Missing, ShouldResemble, map[string]int{"selling": 1})
			So(st.Invalid, ShouldResemble, map[string]int{"selling": 1})
		})

		Convey("duplicate time key is an error", func() {
			recs := []source.Record{{"period": "2024-01", "x": 1.0}, {"period": "2024-01-20", "x": 2.0}}
			_, _, err := Normalize(recs, Schema{Key: KeySpec{Field: "period"}, KeyColumn: "period"})
			So(err, ShouldNotBeNil)
		})

		Convey("invalid schema", func() {
			_, _, err := Normalize(nil, Schema{KeyColumn: "k"})
			So(err, ShouldNotBeNil)
			_, _, err = Normalize(nil, Schema{Key: KeySpec{Field: "p"}})
			So(err, ShouldNotBeNil)
			_, _, err = Normalize(nil, Schema{Key: KeySpec{Field: "p"}, KeyColumn: "p",
				Columns: []string{"a"}, Partition: []string{"b"}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestAggregate(t *testing.T) {
	t.Parallel()

	Convey("Aggregate works", t, func() {
		Convey("mean over present values only", func() {
			recs := []source.Record{
				{"period": "2024-03-01", "mor": 3.0},
				{"period": "2024-03-15", "mor": 3.5},
				{"period": "2024-03-20", "mor": nil},
			}
			tbl, st, err := Aggregate(recs, AggregateSpec{
				Timestamp: "period", Numeric: []string{"mor"}, KeyColumn: "year_month"})
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"mor", "year_month"})
			So(tbl.Rows, ShouldResemble, []table.Row{
				{table.Number(3.25), table.String("2024-03")},
			})
			So(st.Rows, ShouldEqual, 1)
		})

		Convey("all configured fields, months ascending", func() {
			tbl, st, err := Aggregate(interestRecords(), interestSpec)
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"mor", "mlr", "year_month"})
			So(tbl.Rows, ShouldResemble, []table.Row{
				{table.Number(7.25), table.Number(6.5), table.String("2024-01")},
				{table.Missing(), table.Missing(), table.String("2024-02")},
			})
			So(st.Records, ShouldEqual, 4)
			So(st.Rows, ShouldEqual, 2)
			So(st.Skipped, ShouldEqual, 1)
			So(st.Missing, ShouldResemble, map[string]int{"mor": 1, "mlr": 1})
			So(st.Invalid, ShouldResemble, map[string]int{"mor": 1})
		})

		Convey("invalid spec", func() {
			_, _, err := Aggregate(nil, AggregateSpec{Timestamp: "period", KeyColumn: "ym"})
			So(err, ShouldNotBeNil)
			_, _, err = Aggregate(nil, AggregateSpec{
				Timestamp: "period", KeyColumn: "ym", Numeric: []string{"a", "a"}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMerge(t *testing.T) {
	t.Parallel()

	Convey("Merge works", t, func() {
		left := table.NewTable("ym", "price_index")
		left.AddRow(
			table.Row{table.String("2024-01"), table.Number(101)},
			table.Row{table.String("2024-02"), table.Number(102)},
		)
		right := table.NewTable("ym", "mor")
		right.AddRow(table.Row{table.String("2024-01"), table.Number(3.0)})
		mapping := Mapping{{"ym", "year_month"}, {"price_index", "price_index"}, {"mor", "mor"}}

		Convey("left join keeps every left row", func() {
			m, err := Merge(left, right, "ym", mapping)
			So(err, ShouldBeNil)
			So(m.Header, ShouldResemble, []string{"year_month", "price_index", "mor"})
			So(m.Rows, ShouldResemble, []table.Row{
				{table.String("2024-01"), table.Number(101), table.Number(3.0)},
				{table.String("2024-02"), table.Number(102), table.Missing()},
			})
		})

		Convey("duplicate right key", func() {
			right.AddRow(table.Row{table.String("2024-01"), table.Number(3.5)})
			_, err := Merge(left, right, "ym", mapping)
			So(err, ShouldHaveSameTypeAs, &JoinKeyError{})
			So(err.(*JoinKeyError).Value, ShouldEqual, "2024-01")
		})

		Convey("mapping errors", func() {
			_, err := Merge(left, right, "ym", Mapping{{"nope", "nope"}})
			So(err, ShouldNotBeNil)
			_, err = Merge(left, right, "ym", Mapping{{"ym", "a"}, {"mor", "a"}})
			So(err, ShouldNotBeNil)
			_, err = Merge(left, right, "ym", nil)
			So(err, ShouldNotBeNil)
			_, err = Merge(left, right, "other", mapping)
			So(err, ShouldNotBeNil)

			both := table.NewTable("ym", "mor")
			_, err = Merge(both, right, "ym", Mapping{{"mor", "mor"}})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestMergedSnapshot(t *testing.T) {
	t.Parallel()

	Convey("Merged CPI and interest snapshot matches the golden file", t, func() {
		cpi, _, err := Normalize(cpiRecords(), cpiSchema)
		So(err, ShouldBeNil)
		interest, _, err := Aggregate(interestRecords(), interestSpec)
		So(err, ShouldBeNil)
		merged, err := Merge(cpi, interest, "year_month", Mapping{
			{"base_year", "base_year"},
			{"price_index", "price_index"},
			{"mom", "mon"},
			{"yoy", "yoy"},
			{"aoa", "aoa"},
			{"year_month", "year_month"},
			{"mor", "mor"},
			{"mlr", "mlr"},
		})
		So(err, ShouldBeNil)
		var buf bytes.Buffer
		So(merged.WriteCSV(&buf, table.Params{}), ShouldBeNil)
		goldie.New(t).Assert(t, "merged", buf.Bytes())
	})
}
