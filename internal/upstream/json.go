package upstream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// decodeJSON accepts either a single object or an array of objects, per
// the upstream contract's `.json` rule.
func decodeJSON(data []byte) ([]types.RequestMetrics, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var raw []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("upstream: decode json array: %w", err)
		}
		out := make([]types.RequestMetrics, 0, len(raw))
		for i, obj := range raw {
			m, err := recordFromJSON(obj)
			if err != nil {
				return nil, fmt.Errorf("upstream: element %d: %w", i, err)
			}
			out = append(out, m)
		}
		return out, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("upstream: decode json object: %w", err)
	}
	m, err := recordFromJSON(obj)
	if err != nil {
		return nil, err
	}
	return []types.RequestMetrics{m}, nil
}

// decodeJSONL parses one JSON object per line. A line that fails to
// parse is logged and skipped rather than aborting the whole file,
// matching the upstream contract's malformed-line tolerance.
func decodeJSONL(data []byte) ([]types.RequestMetrics, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out []types.RequestMetrics
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var obj map[string]json.RawMessage
		if err := json.Unmarshal(line, &obj); err != nil {
			log.Printf("upstream: jsonl line %d: malformed, skipping: %v", lineNo, err)
			continue
		}

		m, err := recordFromJSON(obj)
		if err != nil {
			log.Printf("upstream: jsonl line %d: %v, skipping", lineNo, err)
			continue
		}
		out = append(out, m)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("upstream: scan jsonl: %w", err)
	}
	return out, nil
}

// recordFromJSON flattens a decoded JSON object into the string-keyed
// fields map the shared aliasing logic in record.go operates on.
func recordFromJSON(obj map[string]json.RawMessage) (types.RequestMetrics, error) {
	f := make(fields, len(obj))
	for k, raw := range obj {
		s, err := jsonValueToString(raw)
		if err != nil {
			return types.RequestMetrics{}, fmt.Errorf("field %q: %w", k, err)
		}
		f.set(k, s)
	}
	return toMetrics(f)
}

// jsonValueToString renders a raw JSON scalar or array as the plain
// string form record.go's coercion helpers expect. Arrays are rendered
// comma-joined, matching the list form parseDurationList accepts.
func jsonValueToString(raw json.RawMessage) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}

	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case []interface{}:
		parts := make([]string, len(val))
		for i, item := range val {
			b, err := json.Marshal(item)
			if err != nil {
				return "", err
			}
			s, err := jsonValueToString(b)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		out := ""
		for i, p := range parts {
			if i > 0 {
				out += ","
			}
			out += p
		}
		return out, nil
	default:
		return string(raw), nil
	}
}
