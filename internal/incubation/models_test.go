package incubation

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterUpdate_DistinguishesAbsentFromNull(t *testing.T) {
	lumens := 300.0
	room := int64(2)
	p := Parameter{Company: "acme", Batch: "L1", TempIdeal: 37.5, HumidityIdeal: 55, Lumens: &lumens, RoomID: &room}

	var u ParameterUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"temp_ideal": 38, "lumens": null}`), &u))
	require.NoError(t, u.apply(&p))

	assert.Equal(t, 38.0, p.TempIdeal)
	assert.Nil(t, p.Lumens)
	require.NotNil(t, p.RoomID)
	assert.Equal(t, int64(2), *p.RoomID)
	assert.Equal(t, "acme", p.Company)
}

func TestParameterUpdate_RejectsNullRequiredField(t *testing.T) {
	var u ParameterUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"empresa": null}`), &u))
	err := u.apply(&Parameter{Company: "acme"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReadingInput_AcceptsZonelessTimestamps(t *testing.T) {
	var in ReadingInput
	require.NoError(t, json.Unmarshal([]byte(`{"temperatura": 37.2, "lote": "L1", "data_inicial": "2026-01-02T03:04:05"}`), &in))

	r := in.reading()
	require.NotNil(t, r.StartedAt)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), *r.StartedAt)
	assert.Nil(t, r.EndedAt)
	assert.Nil(t, r.Humidity)
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	var in ReadingInput
	err := json.Unmarshal([]byte(`{"data_final": "tomorrow"}`), &in)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
