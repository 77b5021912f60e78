package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/finlens/internal/utils"
)

// WriteCSV writes records with derived columns, header first.
func WriteCSV(w io.Writer, records []Company) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(ExportColumns))
	for i, c := range ExportColumns {
		header[i] = string(c)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range records {
		if err := cw.Write(sourceRow(c)); err != nil {
			return fmt.Errorf("write row %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile writes ds to path in the format implied by its extension
// (.csv, .parquet or .xlsx). The file is replaced atomically.
func ExportFile(path string, ds *Dataset) error {
	var buf bytes.Buffer
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", "":
		err = WriteCSV(&buf, ds.Records())
	case ".parquet":
		err = WriteParquet(&buf, ds.Records())
	case ".xlsx":
		err = WriteXLSX(&buf, ds.Records())
	default:
		return fmt.Errorf("unsupported export format %q (use .csv, .parquet or .xlsx)", ext)
	}
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return utils.SafeWriteFile(path, buf.Bytes())
}
