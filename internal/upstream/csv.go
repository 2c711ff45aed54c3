package upstream

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// decodeCSV parses a header-driven CSV file into RequestMetrics,
// accepting the same aliased column names the JSON readers accept. A
// row with the wrong column count is logged and skipped, matching the
// JSONL reader's tolerance for malformed records.
func decodeCSV(data []byte) ([]types.RequestMetrics, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("upstream: read csv header: %w", err)
	}

	var out []types.RequestMetrics
	lineNo := 1
	for {
		row, err := r.Read()
		lineNo++
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("upstream: read csv row %d: %w", lineNo, err)
		}
		if len(row) != len(header) {
			log.Printf("upstream: csv row %d: column count mismatch (got %d, want %d), skipping", lineNo, len(row), len(header))
			continue
		}

		f := make(fields, len(header))
		for i, col := range header {
			f.set(col, row[i])
		}

		m, err := toMetrics(f)
		if err != nil {
			log.Printf("upstream: csv row %d: %v, skipping", lineNo, err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
