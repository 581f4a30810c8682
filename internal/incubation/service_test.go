package incubation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestService_CreateAndFindParameters(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateParameter(ctx, ParameterInput{Company: "acme", Batch: "L1"})
	assert.ErrorIs(t, err, ErrMissingFields)

	created, err := svc.CreateParameter(ctx, ParameterInput{Company: " acme ", Batch: "L1", TempIdeal: ptr(37.5), HumidityIdeal: ptr(60.0)})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "acme", created.Company)

	_, err = svc.CreateParameter(ctx, ParameterInput{Company: "beta", Batch: "L2", TempIdeal: ptr(37.0), HumidityIdeal: ptr(58.0)})
	require.NoError(t, err)

	found, err := svc.FindParameters(ctx, "acme", "L1")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, created.ID, found[0].ID)

	_, err = svc.FindParameters(ctx, "acme", "")
	assert.ErrorIs(t, err, ErrMissingFields)

	companies, err := svc.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "beta"}, companies)

	batches, err := svc.Batches(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, []string{"L2"}, batches)
}

func TestService_UpdateParameterReturnsSnapshots(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()
	created, err := svc.CreateParameter(ctx, ParameterInput{Company: "acme", Batch: "L1", TempIdeal: ptr(37.5), HumidityIdeal: ptr(60.0)})
	require.NoError(t, err)

	before, after, err := svc.UpdateParameter(ctx, created.ID, ParameterUpdate{TempIdeal: Patch[float64]{Set: true, Value: ptr(38.0)}})
	require.NoError(t, err)
	assert.Equal(t, 37.5, before.TempIdeal)
	assert.Equal(t, 38.0, after.TempIdeal)

	_, _, err = svc.UpdateParameter(ctx, 999, ParameterUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = svc.UpdateParameter(ctx, created.ID, ParameterUpdate{Company: Patch[string]{Set: true, Value: ptr("  ")}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestService_Readings(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	_, err := svc.CreateReadings(ctx, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	early := Timestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	late := Timestamp(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	created, err := svc.CreateReadings(ctx, []ReadingInput{
		{Temperature: ptr(37.1), Batch: ptr("L1"), StartedAt: &early},
		{Temperature: ptr(37.4), Batch: ptr("L1"), StartedAt: &late},
		{Temperature: ptr(36.9), Batch: ptr("L2")},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)

	l1, err := svc.ListReadings(ctx, "L1")
	require.NoError(t, err)
	require.Len(t, l1, 2)
	assert.Equal(t, created[1].ID, l1[0].ID, "newest start first")

	all, err := svc.ListReadings(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, created[2].ID, all[2].ID, "readings without a start sort last")

	before, after, err := svc.UpdateReading(ctx, created[0].ID, ReadingUpdate{Humidity: Patch[float64]{Set: true, Value: ptr(61.0)}})
	require.NoError(t, err)
	assert.Nil(t, before.Humidity)
	assert.Equal(t, 61.0, *after.Humidity)
	assert.Equal(t, 37.1, *after.Temperature)

	deleted, err := svc.DeleteReading(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0].ID, deleted.ID)

	_, err = svc.DeleteReading(ctx, created[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
