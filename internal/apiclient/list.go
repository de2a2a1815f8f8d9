package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pageza/recipehub/internal/types"
)

var envelopeKeys = []string{"items", "data", "results"}

// DecodeList reads a collection that may come back as a bare array or as an
// envelope. keys names the resource-specific envelope field ("recipes",
// "users", ...); the generic items/data/results keys are always tried.
func DecodeList[T any](resp *Response, keys ...string) (types.List[T], error) {
	var out types.List[T]
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 {
		return out, fmt.Errorf("failed to decode list: empty body")
	}

	if body[0] == '[' {
		if err := json.Unmarshal(body, &out.Items); err != nil {
			return out, fmt.Errorf("failed to decode list: %w", err)
		}
		out.Total = len(out.Items)
		return out, nil
	}

	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return out, fmt.Errorf("failed to decode list envelope: %w", err)
	}

	found := false
	for _, k := range append(append([]string{}, keys...), envelopeKeys...) {
		raw, ok := env[k]
		if !ok || !isArray(raw) {
			continue
		}
		if err := json.Unmarshal(raw, &out.Items); err != nil {
			return out, fmt.Errorf("failed to decode %s: %w", k, err)
		}
		found = true
		break
	}
	if !found {
		return out, fmt.Errorf("failed to decode list: no collection in envelope")
	}

	out.Total = len(out.Items)
	for _, k := range []string{"total", "count"} {
		if raw, ok := env[k]; ok {
			var n int
			if json.Unmarshal(raw, &n) == nil && n >= out.Total {
				out.Total = n
				return out, nil
			}
		}
	}
	if raw, ok := env["pagination"]; ok {
		var p struct {
			Total int `json:"total"`
		}
		if json.Unmarshal(raw, &p) == nil && p.Total >= out.Total {
			out.Total = p.Total
		}
	}
	return out, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// DecodeItem reads a single entity that may be wrapped as {"<key>": {...}}.
func DecodeItem[T any](resp *Response, keys ...string) (*T, error) {
	body := bytes.TrimSpace(resp.Body)
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("failed to decode item: expected an object")
	}
	var env map[string]json.RawMessage
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	for _, k := range keys {
		raw, ok := env[k]
		if !ok {
			continue
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			continue
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", k, err)
		}
		return &out, nil
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &out, nil
}
