package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fyrsmithlabs/medtriage/internal/config"
)

// ReadOptions controls how a CSV corpus is read.
type ReadOptions struct {
	// MaxRows caps the number of data rows read. Zero or negative reads all rows.
	MaxRows int
	// TextColumn names the transcript column (required).
	TextColumn string
	// IDColumn names the optional id column.
	IDColumn string
}

// OptionsFromConfig converts the corpus section into ReadOptions.
func OptionsFromConfig(cfg config.CorpusConfig) ReadOptions {
	return ReadOptions{
		MaxRows:    cfg.MaxRows,
		TextColumn: cfg.TextColumn,
		IDColumn:   cfg.IDColumn,
	}
}

// ReadCSV reads conversations from r. Header names match case-insensitively.
// Rows with a blank id cell fall back to the positional row ID.
func ReadCSV(r io.Reader, opts ReadOptions) ([]Conversation, error) {
	if opts.TextColumn == "" {
		opts.TextColumn = "conversation"
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	textIdx, idIdx := -1, -1
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch {
		case strings.EqualFold(name, opts.TextColumn):
			textIdx = i
		case opts.IDColumn != "" && strings.EqualFold(name, opts.IDColumn):
			idIdx = i
		}
	}
	if textIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, opts.TextColumn)
	}

	var convs []Conversation
	for row := 0; opts.MaxRows <= 0 || row < opts.MaxRows; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", row, err)
		}

		conv := Conversation{ID: RowID(row)}
		if textIdx < len(record) {
			conv.Text = record[textIdx]
		}
		if idIdx >= 0 && idIdx < len(record) {
			if id := strings.TrimSpace(record[idIdx]); id != "" {
				conv.ID = id
			}
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

// LoadFile reads a CSV corpus from path.
func LoadFile(path string, opts ReadOptions) ([]Conversation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus: %w", err)
	}
	defer f.Close()

	convs, err := ReadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return convs, nil
}
