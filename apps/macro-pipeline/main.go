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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/pipeline"
	"github.com/stockparfait/macro/table"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Flags struct {
	LogLevel logging.Level
	Config   string // config file
	Task     pipeline.Task
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("macro-pipeline", flag.ExitOnError)
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Config, "conf", "", "config file (required)")
	flags.Task = pipeline.TaskAll
	names := make([]string, len(pipeline.Tasks))
	for i, t := range pipeline.Tasks {
		names[i] = string(t)
	}
	fs.Var(&flags.Task, "task", "Task to run: "+strings.Join(names, ", "))

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Config == "" {
		return nil, errors.Reason("missing required -conf argument")
	}
	return &flags, err
}

// printReport writes a per-series summary of the run.
func printReport(w io.Writer, r *pipeline.Report) error {
	tbl := table.NewTable("series", "rows", "skipped", "missing", "output")
	names := maps.Keys(r.Stats)
	slices.Sort(names)
	for _, name := range names {
		st := r.Stats[name]
		missing := 0
		for _, n := range st.Missing {
			missing += n
		}
		tbl.AddRow(table.Row{
			table.String(name),
			table.Number(float64(st.Rows)),
			table.Number(float64(st.Skipped)),
			table.Number(float64(missing)),
			table.String(r.Outputs[name]),
		})
	}
	if _, err := fmt.Fprintf(w, "run %s\n", r.RunID); err != nil {
		return errors.Annotate(err, "failed to print report")
	}
	return tbl.WriteText(w, table.Params{})
}

func run(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := pipeline.ParseConfig(flags.Config)
	if err != nil {
		return errors.Annotate(err, "failed to read config '%s'", flags.Config)
	}
	loader, err := config.Load.Loader()
	if err != nil {
		return errors.Annotate(err, "failed to create loader")
	}
	report, err := pipeline.Run(ctx, config, flags.Task, loader)
	if err != nil {
		return errors.Annotate(err, "task %s failed", flags.Task)
	}
	return printReport(w, report)
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := run(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
