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
	"fmt"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/table"
)

// Column maps an input column to its name in the merged output.
type Column struct {
	Source string
	Target string
}

// Mapping lists the merged output columns in order.
type Mapping []Column

// Check the mapping for empty and duplicate names.
func (m Mapping) Check() error {
	if len(m) == 0 {
		return errors.Reason("empty column mapping")
	}
	seen := make(map[string]bool)
	for _, c := range m {
		if c.Source == "" || c.Target == "" {
			return errors.Reason("column mapping %+v has an empty name", c)
		}
		if seen[c.Target] {
			return errors.Reason("duplicate target column '%s'", c.Target)
		}
		seen[c.Target] = true
	}
	return nil
}

// JoinKeyError reports a key value matching several rows of the right table.
type JoinKeyError struct {
	Key   string
	Value string
}

func (e *JoinKeyError) Error() string {
	return fmt.Sprintf("join key %s=%s is not unique in the right table", e.Key, e.Value)
}

// Merge left-joins right onto left by the key column: every left row appears
// exactly once and in order, with the right columns missing when there is no
// match. The output consists of exactly the mapped columns. A key value
// repeated in right is a *JoinKeyError.
func Merge(left, right *table.Table, key string, out Mapping) (*table.Table, error) {
	if err := out.Check(); err != nil {
		return nil, errors.Annotate(err, "invalid mapping")
	}
	lk := left.Column(key)
	rk := right.Column(key)
	if lk < 0 || rk < 0 {
		return nil, errors.Reason("key column '%s' is missing in the left or right table", key)
	}

	type ref struct {
		left bool
		idx  int
	}
	refs := make([]ref, len(out))
	for i, c := range out {
		if c.Source == key {
			refs[i] = ref{left: true, idx: lk}
			continue
		}
		li := left.Column(c.Source)
		ri := right.Column(c.Source)
		switch {
		case li >= 0 && ri >= 0:
			return nil, errors.Reason("column '%s' is ambiguous: present in both tables", c.Source)
		case li >= 0:
			refs[i] = ref{left: true, idx: li}
		case ri >= 0:
			refs[i] = ref{left: false, idx: ri}
		default:
			return nil, errors.Reason("column '%s' is not in either table", c.Source)
		}
	}

	index := make(map[string]int, len(right.Rows))
	for i, row := range right.Rows {
		if row[rk].IsMissing() {
			continue
		}
		v := row[rk].String()
		if _, ok := index[v]; ok {
			return nil, &JoinKeyError{Key: key, Value: v}
		}
		index[v] = i
	}

	header := make([]string, len(out))
	for i, c := range out {
		header[i] = c.Target
	}
	t := table.NewTable(header...)
	for _, lrow := range left.Rows {
		var rrow table.Row
		if !lrow[lk].IsMissing() {
			if j, ok := index[lrow[lk].String()]; ok {
				rrow = right.Rows[j]
			}
		}
		row := make(table.Row, len(out))
		for i, r := range refs {
			switch {
			case r.left:
				row[i] = lrow[r.idx]
			case rrow != nil:
				row[i] = rrow[r.idx]
			default:
				row[i] = table.Missing()
			}
		}
		t.AddRow(row)
	}
	return t, nil
}
