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
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/macro/table"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDB(t *testing.T) {
	t.Parallel()
	tmpdir, tmpdirErr := os.MkdirTemp("", "testdb")
	defer os.RemoveAll(tmpdir)

	Convey("Test setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("Snapshot methods", t, func() {
		fileName := filepath.Join(tmpdir, "data", "int_data.csv")
		tbl := table.NewTable("mor", "mlr", "year_month")
		tbl.AddRow(
			table.Row{table.Number(7.1), table.Missing(), table.String("2024-01")},
			table.Row{table.Number(7.05), table.Number(6.9), table.String("2024-02")},
		)

		Convey("write and read back", func() {
			So(WriteTable(fileName, tbl), ShouldBeNil)
			read, err := ReadTable(fileName)
			So(err, ShouldBeNil)
			So(read, ShouldResemble, tbl)

			entries, err := os.ReadDir(filepath.Dir(fileName))
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1) // no temporary files left behind
		})

		Convey("overwrite replaces the snapshot", func() {
			So(WriteTable(fileName, tbl), ShouldBeNil)
			small := table.NewTable("year_month")
			small.AddRow(table.Row{table.String("2024-03")})
			So(WriteTable(fileName, small), ShouldBeNil)
			read, err := ReadTable(fileName)
			So(err, ShouldBeNil)
			So(read, ShouldResemble, small)
		})

		Convey("inconsistent table is rejected", func() {
			bad := table.NewTable("a", "b")
			bad.AddRow(table.Row{table.Number(1)})
			So(WriteTable(filepath.Join(tmpdir, "bad.csv"), bad), ShouldNotBeNil)
			_, err := os.Stat(filepath.Join(tmpdir, "bad.csv"))
			So(os.IsNotExist(err), ShouldBeTrue)
		})

		Convey("text that looks numeric survives a rewrite", func() {
			cpi := table.NewTable("index_id", "index_description", "price_index")
			cpi.AddRow(table.Row{table.String("0000000000000000"), table.String("NaN"), table.Number(108.1)})
			So(WriteTable(fileName, cpi), ShouldBeNil)
			read, err := ReadTable(fileName)
			So(err, ShouldBeNil)
			So(read, ShouldResemble, cpi)

			first, err := os.ReadFile(fileName)
			So(err, ShouldBeNil)
			So(WriteTable(fileName, read), ShouldBeNil)
			second, err := os.ReadFile(fileName)
			So(err, ShouldBeNil)
			So(string(second), ShouldEqual, string(first))
		})

		Convey("CopyFile replaces the target with the same bytes", func() {
			So(WriteTable(fileName, tbl), ShouldBeNil)
			target := filepath.Join(tmpdir, "copy", "int_data.csv")
			So(CopyFile(target, fileName), ShouldBeNil)
			src, err := os.ReadFile(fileName)
			So(err, ShouldBeNil)
			dst, err := os.ReadFile(target)
			So(err, ShouldBeNil)
			So(string(dst), ShouldEqual, string(src))
			So(CopyFile(target, filepath.Join(tmpdir, "nope.csv")), ShouldNotBeNil)
			dst, err = os.ReadFile(target)
			So(err, ShouldBeNil)
			So(string(dst), ShouldEqual, string(src))
		})

		Convey("missing file", func() {
			_, err := ReadTable(filepath.Join(tmpdir, "nope.csv"))
			So(err, ShouldNotBeNil)
		})
	})
}
