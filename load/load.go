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

// Package load hands finished snapshots to their destinations. Every loader
// replaces the destination contents with the snapshot.
package load

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
	"github.com/stockparfait/macro/db"
)

// Mode of writing to the destination.
type Mode string

// ModeReplace truncates the destination before writing.
const ModeReplace = Mode("WRITE_TRUNCATE")

// Request to load one snapshot file.
type Request struct {
	Path        string `json:"path"`        // local snapshot file
	Destination string `json:"destination"` // table or object name
	Mode        Mode   `json:"mode"`
	RunID       string `json:"run_id,omitempty"`
}

// Check the request for consistency.
func (r *Request) Check() error {
	if r.Path == "" || r.Destination == "" {
		return errors.Reason("load request requires a path and a destination")
	}
	if r.Mode != ModeReplace {
		return errors.Reason("unsupported load mode '%s'", r.Mode)
	}
	return nil
}

// Loader moves a snapshot into its destination.
type Loader interface {
	Load(ctx context.Context, r Request) error
}

// DirLoader replaces a CSV file named after the destination in a directory.
type DirLoader struct {
	Dir string
}

var _ Loader = &DirLoader{}

// Load validates the snapshot by reading it and copies its bytes atomically
// under the destination name.
func (l *DirLoader) Load(ctx context.Context, r Request) error {
	if err := r.Check(); err != nil {
		return errors.Annotate(err, "invalid request")
	}
	name := r.Destination
	if !strings.HasSuffix(name, ".csv") {
		name += ".csv"
	}
	if filepath.Base(name) != name {
		return errors.Reason("destination '%s' must be a plain name", r.Destination)
	}
	t, err := db.ReadTable(r.Path)
	if err != nil {
		return errors.Annotate(err, "failed to read snapshot")
	}
	target := filepath.Join(l.Dir, name)
	if err := db.CopyFile(target, r.Path); err != nil {
		return errors.Annotate(err, "failed to replace '%s'", target)
	}
	logging.Infof(ctx, "loaded %d rows from %s into %s", len(t.Rows), r.Path, target)
	return nil
}
