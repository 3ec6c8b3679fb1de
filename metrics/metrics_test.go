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

package metrics

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	Convey("Metrics work", t, func() {
		Convey("context injection", func() {
			m := New()
			ctx := Use(context.Background(), m)
			So(Get(ctx), ShouldEqual, m)
			So(Get(context.Background()), ShouldNotBeNil)
			So(Get(context.Background()), ShouldNotEqual, m)
		})

		Convey("counters are independent per instance", func() {
			m1 := New()
			m2 := New()
			m1.Windows.WithLabelValues("interest", StatusOK).Inc()
			m1.Windows.WithLabelValues("interest", StatusOK).Inc()
			m1.MissingValues.WithLabelValues("interest", "mor").Add(3)
			So(promtest.ToFloat64(m1.Windows.WithLabelValues("interest", StatusOK)), ShouldEqual, 2)
			So(promtest.ToFloat64(m2.Windows.WithLabelValues("interest", StatusOK)), ShouldEqual, 0)
			So(promtest.ToFloat64(m1.MissingValues.WithLabelValues("interest", "mor")), ShouldEqual, 3)
		})

		Convey("textfile export", func() {
			tmpdir, err := os.MkdirTemp("", "testmetrics")
			So(err, ShouldBeNil)
			defer os.RemoveAll(tmpdir)

			m := New()
			m.Rows.WithLabelValues("cpi").Set(23)
			fileName := filepath.Join(tmpdir, "macro.prom")
			So(m.WriteTextfile(fileName), ShouldBeNil)
			b, err := os.ReadFile(fileName)
			So(err, ShouldBeNil)
			So(strings.Contains(string(b), `macro_rows{series="cpi"} 23`), ShouldBeTrue)
		})
	})
}
