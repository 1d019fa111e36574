package collect

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var errNoRecords = errors.New("provider returned no records")

// OrQuery builds the boolean search `field:a OR field:b`. Terms containing
// whitespace are quoted; blank terms are skipped.
func OrQuery(field string, terms []string) string {
	clauses := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.ContainsAny(t, " \t") {
			t = `"` + strings.ReplaceAll(t, `"`, "") + `"`
		}
		clauses = append(clauses, field+":"+t)
	}
	return strings.Join(clauses, " OR ")
}

func endpoint(base, path string, q url.Values) string {
	u := strings.TrimRight(base, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// withParam returns a copy of q with key set, or q itself when value is empty.
func withParam(q url.Values, key, value string) url.Values {
	if value == "" {
		return q
	}
	out := make(url.Values, len(q)+1)
	for k, v := range q {
		out[k] = v
	}
	out.Set(key, value)
	return out
}

// stripQuery drops the query string, which may carry an API key.
func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

func anyJSON(json.RawMessage) error { return nil }

// nonEmptyArray accepts an object whose field is a non-empty JSON array.
func nonEmptyArray(field string) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return fmt.Errorf("unexpected payload shape: %w", err)
		}
		var items []json.RawMessage
		if err := json.Unmarshal(obj[field], &items); err != nil || len(items) == 0 {
			return errNoRecords
		}
		return nil
	}
}
