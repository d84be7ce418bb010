package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
)

// CSVHeader is written as the first row of a new file.
var CSVHeader = []string{"Company Name", "URL", "Short Summary"}

// CSV appends one row per company to a CSV file.
type CSV struct {
	path string
	mu   sync.Mutex
}

// NewCSV returns a ledger writing to path.
func NewCSV(path string) *CSV {
	return &CSV{path: path}
}

// Path returns the file the ledger writes to.
func (l *CSV) Path() string { return l.path }

// Append writes the header when the file is new, then one row. A row that
// already carries record.URL makes the call a no-op.
func (l *CSV) Append(_ context.Context, record crawler.CompanyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	urls, err := l.urls()
	if err != nil {
		return err
	}
	if _, ok := urls[record.URL]; ok {
		return nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if urls == nil {
		if err := w.Write(CSVHeader); err != nil {
			return fmt.Errorf("encode csv header: %w", err)
		}
	}
	if err := w.Write([]string{record.Name, record.URL, record.ShortSummary}); err != nil {
		return fmt.Errorf("encode csv row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("encode csv row: %w", err)
	}

	// #nosec G304 -- path comes from operator configuration.
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv ledger: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append csv row: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync csv ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv ledger: %w", err)
	}
	return nil
}

// urls returns the URL column of the existing file, or nil when the file is
// missing or empty.
func (l *CSV) urls() (map[string]struct{}, error) {
	// #nosec G304 -- path comes from operator configuration.
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open csv ledger: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var out map[string]struct{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv ledger: %w", err)
		}
		if out == nil {
			out = make(map[string]struct{})
		}
		if len(row) > 1 {
			out[row[1]] = struct{}{}
		}
	}
}
