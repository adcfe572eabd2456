package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Tone marks a cell for highlighting in formats that support it.
type Tone int

const (
	ToneNone Tone = iota
	ToneInfo
	ToneWarning
	ToneDanger
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Tones optionally highlights cells, keyed by row index then header.
	Tones map[int]map[string]Tone
}

// Tone returns the highlight of a cell.
func (d Dataset) Tone(row int, header string) Tone {
	if d.Tones == nil {
		return ToneNone
	}
	return d.Tones[row][header]
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
