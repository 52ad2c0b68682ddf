// Package sheet persists accepted applications to a local .xlsx
// workbook, one row per application.
package sheet

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Headers is the fixed column order.
var Headers = []string{"Position", "Company", "Date Applied"}

// Writer appends rows to one sheet of a workbook, creating both on
// first use. Append is at-least-once from the pipeline's point of view;
// the dedup ledger is what prevents the same application being appended
// twice.
type Writer struct {
	path      string
	sheetName string
}

func NewWriter(path, sheetName string) *Writer {
	if sheetName == "" {
		sheetName = "Applications"
	}
	return &Writer{path: path, sheetName: sheetName}
}

// EnsureHeaders creates the workbook and header row if missing.
func (w *Writer) EnsureHeaders() error {
	f, sh, err := w.open()
	if err != nil {
		return err
	}

	if len(sh.Rows) == 0 {
		row := sh.AddRow()
		for _, h := range Headers {
			row.AddCell().SetString(h)
		}
		return w.save(f)
	}

	existing := sh.Rows[0]
	for i, h := range Headers {
		if i >= len(existing.Cells) || existing.Cells[i].String() != h {
			return eris.Errorf("sheet: %s has unexpected headers; refusing to append", w.path)
		}
	}
	return nil
}

// Append adds one row and saves the workbook.
func (w *Writer) Append(cells []string) error {
	f, sh, err := w.open()
	if err != nil {
		return err
	}

	row := sh.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
	return w.save(f)
}

func (w *Writer) open() (*xlsx.File, *xlsx.Sheet, error) {
	if dir := filepath.Dir(w.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, eris.Wrap(err, "sheet: create dir")
		}
	}

	var f *xlsx.File
	if _, err := os.Stat(w.path); err == nil {
		f, err = xlsx.OpenFile(w.path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "sheet: open %s", w.path)
		}
	} else if os.IsNotExist(err) {
		f = xlsx.NewFile()
	} else {
		return nil, nil, eris.Wrapf(err, "sheet: stat %s", w.path)
	}

	sh, ok := f.Sheet[w.sheetName]
	if !ok {
		var err error
		sh, err = f.AddSheet(w.sheetName)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "sheet: add sheet %s", w.sheetName)
		}
	}
	return f, sh, nil
}

func (w *Writer) save(f *xlsx.File) error {
	if err := f.Save(w.path); err != nil {
		return eris.Wrapf(err, "sheet: save %s", w.path)
	}
	return nil
}
