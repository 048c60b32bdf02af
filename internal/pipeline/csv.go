package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
)

// writeCSV writes rows to path, skipping any nil row (a building a worker
// never got to, e.g. on early cancellation) and deriving the header from
// the first non-nil row.
func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	var headerWritten bool
	for _, row := range rows {
		if row == nil {
			continue
		}
		if !headerWritten {
			if err := w.Write(row.Header()); err != nil {
				return fmt.Errorf("writing header: %w", err)
			}
			headerWritten = true
		}
		if err := w.Write(row.Record()); err != nil {
			return fmt.Errorf("writing record: %w", err)
		}
	}
	return w.Error()
}

// mergeCSV concatenates every chunk CSV in paths into a single file at
// finalPath, writing the header only once.
func mergeCSV(paths []string, finalPath string) error {
	out, err := os.Create(finalPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", finalPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	var headerWritten bool
	for _, path := range paths {
		if err := appendCSV(w, path, &headerWritten); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}
	return w.Error()
}

func appendCSV(w *csv.Writer, path string, headerWritten *bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	start := 0
	if *headerWritten {
		start = 1
	} else {
		*headerWritten = true
	}
	for _, rec := range records[start:] {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
