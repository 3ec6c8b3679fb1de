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
	"bufio"
	"io"
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/macro/table"
)

// WriteTable saves the table as a CSV snapshot at fileName, replacing any
// previous snapshot. Readers never observe a partially written snapshot.
func WriteTable(fileName string, t *table.Table) error {
	if err := t.Check(); err != nil {
		return errors.Annotate(err, "refusing to write an inconsistent table to '%s'", fileName)
	}
	return writeAtomic(fileName, func(w io.Writer) error {
		return t.WriteCSV(w, table.Params{})
	})
}

// CopyFile replaces dst with the bytes of src, atomically.
func CopyFile(dst, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.Annotate(err, "failed to open file for reading: '%s'", src)
	}
	defer f.Close()
	return writeAtomic(dst, func(w io.Writer) error {
		_, err := io.Copy(w, f)
		return err
	})
}

// writeAtomic writes to a temporary file in the same directory and renames it
// over fileName.
func writeAtomic(fileName string, write func(w io.Writer) error) error {
	dir := filepath.Dir(fileName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Annotate(err, "failed to create directory '%s'", dir)
	}
	f, err := os.CreateTemp(dir, filepath.Base(fileName)+".*.tmp")
	if err != nil {
		return errors.Annotate(err, "failed to open temporary file for '%s'", fileName)
	}
	tmpName := f.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return errors.Annotate(err, "failed to write to '%s'", tmpName)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Annotate(err, "failed to flush '%s'", tmpName)
	}
	if err := f.Close(); err != nil {
		return errors.Annotate(err, "failed to close '%s'", tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.Annotate(err, "failed to set permissions on '%s'", tmpName)
	}
	if err := os.Rename(tmpName, fileName); err != nil {
		return errors.Annotate(err, "failed to replace '%s'", fileName)
	}
	return nil
}

// ReadTable reads a snapshot written by WriteTable.
func ReadTable(fileName string) (*table.Table, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open file for reading: '%s'", fileName)
	}
	defer f.Close()
	t, err := table.ReadCSV(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Annotate(err, "failed to read from '%s'", fileName)
	}
	return t, nil
}
