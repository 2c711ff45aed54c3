// Package exporters renders an AggregatedMetrics (and, for per-request
// detail, a slice of RequestMetrics) into JSON, CSV, Prometheus
// exposition format, and a tabular console report. Every exporter here
// is a pure function: same input, same bytes out.
package exporters

import (
	"encoding/json"
	"os"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// JSONExporter renders the canonical JSON shape from spec.md §6, with
// pretty-printing toggled on or off.
type JSONExporter struct {
	Pretty bool
}

// NewJSONExporter returns an exporter with the requested indentation
// mode.
func NewJSONExporter(pretty bool) JSONExporter {
	return JSONExporter{Pretty: pretty}
}

// Export serializes agg to a JSON string.
func (e JSONExporter) Export(agg types.AggregatedMetrics) (string, error) {
	return marshal(agg, e.Pretty)
}

// ExportRequests serializes a slice of per-request records to a JSON
// array.
func (e JSONExporter) ExportRequests(requests []types.RequestMetrics) (string, error) {
	return marshal(requests, e.Pretty)
}

func marshal(v any, pretty bool) (string, error) {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExportToFile writes content to path, creating or truncating it.
func ExportToFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
