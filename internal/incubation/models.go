package incubation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("incubation: not found")
	ErrMissingFields = errors.New("incubation: missing required fields")
	ErrInvalidInput  = errors.New("incubation: invalid input")
)

// Parameter is the ideal environment for one company batch.
type Parameter struct {
	ID            int64     `json:"id"`
	Company       string    `json:"empresa"`
	Batch         string    `json:"lote"`
	TempIdeal     float64   `json:"temp_ideal"`
	HumidityIdeal float64   `json:"umid_ideal"`
	PressureIdeal *float64  `json:"pressao_ideal"`
	Lumens        *float64  `json:"lumens"`
	RoomID        *int64    `json:"id_sala"`
	EggStage      *string   `json:"estagio_ovo"`
	CreatedAt     time.Time `json:"data_criacao"`
}

// Reading is one sensor sample for a batch. Every measurement is optional.
type Reading struct {
	ID          int64      `json:"id"`
	Humidity    *float64   `json:"umidade"`
	Temperature *float64   `json:"temperatura"`
	Pressure    *float64   `json:"pressao"`
	Batch       *string    `json:"lote"`
	StartedAt   *time.Time `json:"data_inicial"`
	EndedAt     *time.Time `json:"data_final"`
}

type ParameterInput struct {
	Company       string   `json:"empresa"`
	Batch         string   `json:"lote"`
	TempIdeal     *float64 `json:"temp_ideal"`
	HumidityIdeal *float64 `json:"umid_ideal"`
	PressureIdeal *float64 `json:"pressao_ideal"`
	Lumens        *float64 `json:"lumens"`
	RoomID        *int64   `json:"id_sala"`
	EggStage      *string  `json:"estagio_ovo"`
}

// ParameterUpdate only touches the fields present in the request.
type ParameterUpdate struct {
	Company       Patch[string]  `json:"empresa"`
	Batch         Patch[string]  `json:"lote"`
	TempIdeal     Patch[float64] `json:"temp_ideal"`
	HumidityIdeal Patch[float64] `json:"umid_ideal"`
	PressureIdeal Patch[float64] `json:"pressao_ideal"`
	Lumens        Patch[float64] `json:"lumens"`
	RoomID        Patch[int64]   `json:"id_sala"`
	EggStage      Patch[string]  `json:"estagio_ovo"`
}

func (u ParameterUpdate) apply(p *Parameter) error {
	if err := setRequired(u.Company, &p.Company, "empresa"); err != nil {
		return err
	}
	if err := setRequired(u.Batch, &p.Batch, "lote"); err != nil {
		return err
	}
	if err := setRequired(u.TempIdeal, &p.TempIdeal, "temp_ideal"); err != nil {
		return err
	}
	if err := setRequired(u.HumidityIdeal, &p.HumidityIdeal, "umid_ideal"); err != nil {
		return err
	}
	u.PressureIdeal.setOptional(&p.PressureIdeal)
	u.Lumens.setOptional(&p.Lumens)
	u.RoomID.setOptional(&p.RoomID)
	u.EggStage.setOptional(&p.EggStage)
	return nil
}

type ReadingInput struct {
	Humidity    *float64   `json:"umidade"`
	Temperature *float64   `json:"temperatura"`
	Pressure    *float64   `json:"pressao"`
	Batch       *string    `json:"lote"`
	StartedAt   *Timestamp `json:"data_inicial"`
	EndedAt     *Timestamp `json:"data_final"`
}

func (in ReadingInput) reading() Reading {
	return Reading{
		Humidity:    in.Humidity,
		Temperature: in.Temperature,
		Pressure:    in.Pressure,
		Batch:       in.Batch,
		StartedAt:   in.StartedAt.timePtr(),
		EndedAt:     in.EndedAt.timePtr(),
	}
}

// ReadingUpdate only touches the fields present in the request.
type ReadingUpdate struct {
	Humidity    Patch[float64]   `json:"umidade"`
	Temperature Patch[float64]   `json:"temperatura"`
	Pressure    Patch[float64]   `json:"pressao"`
	Batch       Patch[string]    `json:"lote"`
	StartedAt   Patch[Timestamp] `json:"data_inicial"`
	EndedAt     Patch[Timestamp] `json:"data_final"`
}

func (u ReadingUpdate) apply(r *Reading) {
	u.Humidity.setOptional(&r.Humidity)
	u.Temperature.setOptional(&r.Temperature)
	u.Pressure.setOptional(&r.Pressure)
	u.Batch.setOptional(&r.Batch)
	if u.StartedAt.Set {
		r.StartedAt = u.StartedAt.Value.timePtr()
	}
	if u.EndedAt.Set {
		r.EndedAt = u.EndedAt.Value.timePtr()
	}
}

// Patch is a field of a partial update: Set reports the key was present,
// a nil Value is an explicit null.
type Patch[T any] struct {
	Set   bool
	Value *T
}

func (p *Patch[T]) UnmarshalJSON(b []byte) error {
	p.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

func (p Patch[T]) setOptional(dst **T) {
	if p.Set {
		*dst = p.Value
	}
}

func setRequired[T any](p Patch[T], dst *T, name string) error {
	if !p.Set {
		return nil
	}
	if p.Value == nil {
		return fmt.Errorf("%w: %s cannot be null", ErrInvalidInput, name)
	}
	*dst = *p.Value
	return nil
}

// Timestamp accepts RFC 3339 and the zone-less ISO form the dashboard sends (read as UTC).
type Timestamp time.Time

var timestampLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05"}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: timestamp must be a string", ErrInvalidInput)
	}
	for _, layout := range timestampLayouts {
		if v, err := time.Parse(layout, s); err == nil {
			*t = Timestamp(v.UTC())
			return nil
		}
	}
	return fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidInput, s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(t))
}

func (t *Timestamp) timePtr() *time.Time {
	if t == nil {
		return nil
	}
	v := time.Time(*t)
	return &v
}
