package audit

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidFilter marks a query the caller must fix (HTTP 400).
var ErrInvalidFilter = errors.New("audit: invalid filter")

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseFilter reads usuario_id, acao, data_inicio, data_fim and limite.
// Non-numeric usuario_id/limite are ignored (limite falls back to DefaultQueryLimit);
// unparseable timestamps are rejected. Zone-less timestamps are UTC.
func ParseFilter(q url.Values) (Filter, error) {
	var f Filter

	if v := strings.TrimSpace(q.Get("usuario_id")); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id > 0 {
			f.UserID = &id
		}
	}
	f.Action = strings.TrimSpace(q.Get("acao"))

	for _, bound := range []struct {
		key string
		dst **time.Time
	}{
		{"data_inicio", &f.From},
		{"data_fim", &f.To},
	} {
		v := strings.TrimSpace(q.Get(bound.key))
		if v == "" {
			continue
		}
		t, err := parseTimestamp(v)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: %s must be a timestamp, got %q", ErrInvalidFilter, bound.key, v)
		}
		*bound.dst = &t
	}

	f.Limit = DefaultQueryLimit
	if v := strings.TrimSpace(q.Get("limite")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	return f, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", v)
}
