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

package source

import (
	"context"

	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/metrics"
	"github.com/stockparfait/macro/window"
)

// Extractor pulls the list of records out of a response payload. The bool
// result is false when the payload doesn't have the expected envelope shape;
// the records are then empty. Elements of the list that are not JSON objects
// are skipped.
type Extractor func(payload any) ([]Record, bool)

// toRecords converts a decoded JSON list into records, skipping non-objects.
func toRecords(list []any) []Record {
	res := make([]Record, 0, len(list))
	for _, x := range list {
		if m, ok := x.(map[string]any); ok {
			res = append(res, Record(m))
		}
	}
	return res
}

// PathExtractor walks the nested object keys and expects a list at the end of
// the path.
func PathExtractor(path ...string) Extractor {
	return func(payload any) ([]Record, bool) {
		v := payload
		for _, k := range path {
			m, ok := v.(map[string]any)
			if !ok {
				return nil, false
			}
			if v, ok = m[k]; !ok {
				return nil, false
			}
		}
		list, ok := v.([]any)
		if !ok {
			return nil, false
		}
		return toRecords(list), true
	}
}

// DetailExtractor handles the {"result": {"data": {"data_detail": [...]}}}
// envelope of the Bank of Thailand gateway.
var DetailExtractor = PathExtractor("result", "data", "data_detail")

// ListExtractor handles payloads that are a flat list of records.
var ListExtractor = PathExtractor()

// Collect fetches all the windows and concatenates the extracted records in
// window order. Malformed envelopes are logged and counted but not fatal. It
// returns *NoDataError when no records were extracted at all.
func Collect(ctx context.Context, f *Fetcher, extract Extractor, windows []window.Window) ([]Record, error) {
	results, err := f.FetchAll(ctx, windows)
	if err != nil {
		return nil, err
	}
	m := metrics.Get(ctx)
	var records []Record
	for i, r := range results {
		if r.Absent() {
			continue
		}
		recs, ok := extract(r.Payload)
		if !ok {
			logging.Warningf(ctx, "%s [%d/%d] %s: unexpected response structure",
				f.Name, i+1, len(results), r.Window)
			m.MalformedEnvelopes.WithLabelValues(f.Name).Inc()
			continue
		}
		if len(recs) == 0 {
			m.Windows.WithLabelValues(f.Name, metrics.StatusEmpty).Inc()
		}
		logging.Infof(ctx, "%s [%d/%d] %s: %d records",
			f.Name, i+1, len(results), r.Window, len(recs))
		records = append(records, recs...)
	}
	if len(records) == 0 {
		return nil, &NoDataError{Endpoint: f.Endpoint.URL, Windows: len(windows)}
	}
	return records, nil
}
