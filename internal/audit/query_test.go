package audit

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Empty(t *testing.T) {
	f, err := ParseFilter(url.Values{})
	require.NoError(t, err)
	assert.Nil(t, f.UserID)
	assert.Empty(t, f.Action)
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)
	assert.Equal(t, DefaultQueryLimit, f.Limit)
}

func TestParseFilter_AllFields(t *testing.T) {
	f, err := ParseFilter(url.Values{
		"usuario_id":  {"12"},
		"acao":        {"LOGIN"},
		"data_inicio": {"2026-01-01"},
		"data_fim":    {"2026-01-31T23:59:59Z"},
		"limite":      {"20"},
	})
	require.NoError(t, err)
	require.NotNil(t, f.UserID)
	assert.Equal(t, int64(12), *f.UserID)
	assert.Equal(t, "LOGIN", f.Action)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC), *f.To)
	assert.Equal(t, 20, f.Limit)
}

func TestParseFilter_LenientNumbers(t *testing.T) {
	f, err := ParseFilter(url.Values{"usuario_id": {"abc"}, "limite": {"-5"}})
	require.NoError(t, err)
	assert.Nil(t, f.UserID)
	assert.Equal(t, DefaultQueryLimit, f.Limit)

	f, err = ParseFilter(url.Values{"limite": {"many"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultQueryLimit, f.Limit)
}

func TestParseFilter_RejectsBadTimestamp(t *testing.T) {
	_, err := ParseFilter(url.Values{"data_fim": {"yesterday"}})
	require.ErrorIs(t, err, ErrInvalidFilter)
	assert.Contains(t, err.Error(), "data_fim")
}

func TestParseFilter_SpaceSeparatedTimestamp(t *testing.T) {
	f, err := ParseFilter(url.Values{"data_inicio": {"2026-03-04 05:06:07"}})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), *f.From)
}
