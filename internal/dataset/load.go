package dataset

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Load parses r according to the extension of name.
func Load(ctx context.Context, name string, r io.Reader) (*Table, error) {
	var (
		t   *Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".txt", "":
		t, err = ParseCSV(ctx, name, r, CSVOptions{})
	case ".tsv":
		t, err = ParseCSV(ctx, name, r, CSVOptions{Delimiter: '\t'})
	case ".xlsx":
		t, err = ParseXLSX(name, r, XLSXOptions{})
	default:
		return nil, eris.Errorf("dataset: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", name)
	}

	zap.L().Debug("dataset: parsed",
		zap.String("name", name),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns),
	)
	return t, nil
}
