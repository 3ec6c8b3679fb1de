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

// Package pipeline runs the acquisition of the FX, CPI and interest rate
// series, merges CPI with interest rates and loads the results.
package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stockparfait/errors"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/db"
	"github.com/stockparfait/macro/load"
	"github.com/stockparfait/macro/metrics"
	"github.com/stockparfait/macro/series"
	"github.com/stockparfait/macro/source"
	"github.com/stockparfait/macro/window"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Task selects what a single invocation does.
type Task string

// Tasks. TaskAll runs the series concurrently, then merges and loads.
const (
	TaskAll      = Task("all")
	TaskFX       = Task(FX)
	TaskCPI      = Task(CPI)
	TaskInterest = Task(Interest)
	TaskMerge    = Task("merge")
	TaskLoad     = Task("load")
)

// Tasks lists all valid task names.
var Tasks = []Task{TaskAll, TaskFX, TaskCPI, TaskInterest, TaskMerge, TaskLoad}

// Set implements flag.Value.
func (t *Task) Set(s string) error {
	for _, v := range Tasks {
		if string(v) == s {
			*t = v
			return nil
		}
	}
	return errors.Reason("unknown task '%s'", s)
}

func (t *Task) String() string { return string(*t) }

// Report summarizes a run.
type Report struct {
	RunID   string
	Stats   map[string]series.Stats // by series name, including "merge"
	Outputs map[string]string       // snapshot paths by series name
	Loaded  []load.Request
}

func newReport() *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Stats:   make(map[string]series.Stats),
		Outputs: make(map[string]string),
	}
}

// windows for the series according to its split mode.
func (c *Config) windows(s *SeriesConfig) ([]window.Window, error) {
	if s.Split == SplitMonthly {
		return window.Split(c.Start, c.End)
	}
	return window.Whole(c.Start, c.End)
}

// seriesResult is the outcome of one series, for the parallel run.
type seriesResult struct {
	Name  string
	Path  string
	Stats series.Stats
	Err   error
}

// runSeries fetches, normalizes and writes one series. Nothing is written when
// no data was fetched.
func runSeries(ctx context.Context, c *Config, d definition) seriesResult {
	res := seriesResult{Name: d.Name, Path: c.Path(d.Config.OutputPath)}
	if err := d.Endpoint.Check(); err != nil {
		res.Err = errors.Annotate(err, "%s: invalid endpoint", d.Name)
		return res
	}
	ws, err := c.windows(d.Config)
	if err != nil {
		res.Err = errors.Annotate(err, "%s: invalid date range", d.Name)
		return res
	}
	logging.Infof(ctx, "%s: fetching %d window(s) from %s", d.Name, len(ws), d.Endpoint.URL)
	f := source.NewFetcher(d.Name, d.Endpoint, d.Config.Pacing())
	records, err := source.Collect(ctx, f, d.Extract, ws)
	if err != nil {
		res.Err = errors.Annotate(err, "%s: failed to fetch", d.Name)
		return res
	}
	t, st, err := d.Build(records)
	res.Stats = st
	if err != nil {
		res.Err = errors.Annotate(err, "%s: failed to build table", d.Name)
		return res
	}
	recordStats(ctx, d.Name, st)
	if err := db.WriteTable(res.Path, t); err != nil {
		res.Err = errors.Annotate(err, "%s: failed to write snapshot", d.Name)
		return res
	}
	logging.Infof(ctx, "%s: wrote %s: %s", d.Name, res.Path, st)
	return res
}

func recordStats(ctx context.Context, name string, st series.Stats) {
	m := metrics.Get(ctx)
	m.Rows.WithLabelValues(name).Set(float64(st.Rows))
	m.SkippedRecords.WithLabelValues(name).Add(float64(st.Skipped))
	cols := maps.Keys(st.Missing)
	slices.Sort(cols)
	for _, col := range cols {
		m.MissingValues.WithLabelValues(name, col).Add(float64(st.Missing[col]))
	}
	cols = maps.Keys(st.Invalid)
	slices.Sort(cols)
	for _, col := range cols {
		logging.Warningf(ctx, "%s: %d value(s) of '%s' could not be parsed",
			name, st.Invalid[col], col)
	}
}

// runAllSeries runs the three series concurrently and waits for all of them.
func runAllSeries(ctx context.Context, c *Config, r *Report) error {
	defs := c.definitions()
	f := func(d definition) seriesResult { return runSeries(ctx, c, d) }
	pm := iterator.ParallelMap(ctx, len(defs), iterator.FromSlice(defs), f)
	defer pm.Close()

	results := iterator.Reduce[seriesResult, []seriesResult](pm, nil,
		func(res seriesResult, acc []seriesResult) []seriesResult {
			return append(acc, res)
		})
	var failed []string
	var firstErr error
	for _, res := range results {
		if res.Err != nil {
			logging.Errorf(ctx, "%s", res.Err.Error())
			failed = append(failed, res.Name)
			if firstErr == nil {
				firstErr = res.Err
			}
			continue
		}
		r.Stats[res.Name] = res.Stats
		r.Outputs[res.Name] = res.Path
	}
	if firstErr != nil {
		slices.Sort(failed)
		return errors.Annotate(firstErr, "series failed: %s", strings.Join(failed, ", "))
	}
	return nil
}

// runMerge joins the CPI and interest snapshots into the merged snapshot.
func runMerge(ctx context.Context, c *Config, r *Report) error {
	cpi, err := db.ReadTable(c.Path(c.CPI.OutputPath))
	if err != nil {
		return errors.Annotate(err, "merge: failed to read CPI snapshot")
	}
	rates, err := db.ReadTable(c.Path(c.Interest.OutputPath))
	if err != nil {
		return errors.Annotate(err, "merge: failed to read interest snapshot")
	}
	merged, err := series.Merge(cpi, rates, MergeKey, MergeMapping)
	if err != nil {
		return errors.Annotate(err, "merge: failed to join")
	}
	path := c.Path(c.Merged.OutputPath)
	if err := db.WriteTable(path, merged); err != nil {
		return errors.Annotate(err, "merge: failed to write snapshot")
	}
	missing := make(map[string]int)
	for j, h := range merged.Header {
		for _, row := range merged.Rows {
			if row[j].IsMissing() {
				missing[h]++
			}
		}
	}
	st := series.Stats{Records: len(cpi.Rows), Rows: len(merged.Rows), Missing: missing}
	recordStats(ctx, "merge", st)
	r.Stats["merge"] = st
	r.Outputs["merge"] = path
	logging.Infof(ctx, "merge: wrote %s: %d rows", path, len(merged.Rows))
	return nil
}

// runLoad replaces the FX and merged destinations with their snapshots.
func runLoad(ctx context.Context, c *Config, l load.Loader, r *Report) error {
	if l == nil {
		logging.Infof(ctx, "load: no loader configured, skipping")
		return nil
	}
	reqs := []load.Request{
		{Path: c.Path(c.FX.OutputPath), Destination: c.FX.Destination},
		{Path: c.Path(c.Merged.OutputPath), Destination: c.Merged.Destination},
	}
	for _, req := range reqs {
		req.Mode = load.ModeReplace
		req.RunID = r.RunID
		if err := l.Load(ctx, req); err != nil {
			return errors.Annotate(err, "load: failed to load %s", req.Destination)
		}
		r.Loaded = append(r.Loaded, req)
	}
	return nil
}

// Run executes the task. The loader may be nil, in which case loading is
// skipped. Metrics are written to the configured textfile even when the task
// fails.
func Run(ctx context.Context, c *Config, task Task, l load.Loader) (r *Report, err error) {
	r = newReport()
	m := metrics.New()
	ctx = metrics.Use(ctx, m)
	logging.Infof(ctx, "run %s: task %s for %s..%s", r.RunID, task, c.Start, c.End)
	defer func() {
		if c.MetricsPath == "" {
			return
		}
		if mErr := m.WriteTextfile(c.Path(c.MetricsPath)); mErr != nil {
			logging.Warningf(ctx, "%s", mErr.Error())
		}
	}()

	switch task {
	case TaskAll:
		if err = runAllSeries(ctx, c, r); err != nil {
			return r, err
		}
		if err = runMerge(ctx, c, r); err != nil {
			return r, err
		}
		err = runLoad(ctx, c, l, r)
	case TaskFX, TaskCPI, TaskInterest:
		d, _ := c.definition(string(task))
		res := runSeries(ctx, c, d)
		if res.Err != nil {
			return r, res.Err
		}
		r.Stats[res.Name] = res.Stats
		r.Outputs[res.Name] = res.Path
	case TaskMerge:
		err = runMerge(ctx, c, r)
	case TaskLoad:
		err = runLoad(ctx, c, l, r)
	default:
		err = errors.Reason("unknown task '%s'", task)
	}
	return r, err
}
