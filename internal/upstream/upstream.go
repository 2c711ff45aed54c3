// Package upstream reads RequestMetrics vectors out of files produced by
// external test benches: JSON, JSONL/NDJSON, and CSV, each accepting the
// field-aliased column names those tools actually emit rather than this
// repo's own canonical names.
//
// Two further upstream shapes — an analytics hub and a long-running
// observatory feed — are named as data contracts only. Nothing in this
// repo talks to them directly; AnalyticsHubReader and ObservatoryReader
// (external.go) document the shape a future adapter would need to
// satisfy.
package upstream

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// Reader is satisfied by the file-based readers below, each of which
// wraps a fixed byte slice and a format-specific decoder.
type Reader interface {
	ReadMetrics() ([]types.RequestMetrics, error)
}

// fileReader adapts a decode function over raw bytes to the Reader
// interface.
type fileReader struct {
	data   []byte
	decode func([]byte) ([]types.RequestMetrics, error)
}

func (f fileReader) ReadMetrics() ([]types.RequestMetrics, error) {
	return f.decode(f.data)
}

// ReadFile detects path's format by extension (.json, .jsonl/.ndjson,
// .csv) and parses it into a slice of RequestMetrics.
func ReadFile(path string) ([]types.RequestMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("upstream: read %s: %w", path, err)
	}

	reader, err := NewReader(path, data)
	if err != nil {
		return nil, err
	}
	return reader.ReadMetrics()
}

// NewReader builds a Reader for data, choosing the decoder by path's
// extension. path is used only to select the format; data need not live
// on disk.
func NewReader(path string, data []byte) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return fileReader{data: data, decode: decodeJSON}, nil
	case ".jsonl", ".ndjson":
		return fileReader{data: data, decode: decodeJSONL}, nil
	case ".csv":
		return fileReader{data: data, decode: decodeCSV}, nil
	default:
		return nil, fmt.Errorf("upstream: unrecognized file extension %q (want .json, .jsonl, .ndjson, or .csv)", filepath.Ext(path))
	}
}

// ReadAll drains r fully and returns its decoded RequestMetrics. It
// exists for callers that already have an io.Reader (e.g. an HTTP
// response body) and know the format in advance.
func ReadAll(r io.Reader, format string) ([]types.RequestMetrics, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("upstream: read: %w", err)
	}

	switch strings.ToLower(format) {
	case "json":
		return decodeJSON(data)
	case "jsonl", "ndjson":
		return decodeJSONL(data)
	case "csv":
		return decodeCSV(data)
	default:
		return nil, fmt.Errorf("upstream: unrecognized format %q", format)
	}
}
