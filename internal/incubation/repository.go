package incubation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"incubator-platform/pkg/utils"
)

type Repository interface {
	CreateParameter(ctx context.Context, p Parameter) (Parameter, error)
	FindParameters(ctx context.Context, company, batch string) ([]Parameter, error)
	// UpdateParameter applies fn to the locked row and returns both snapshots.
	UpdateParameter(ctx context.Context, id int64, fn func(*Parameter) error) (before, after Parameter, err error)
	ListCompanies(ctx context.Context) ([]string, error)
	ListBatches(ctx context.Context, company string) ([]string, error)

	CreateReadings(ctx context.Context, rs []Reading) ([]Reading, error)
	ListReadings(ctx context.Context, batch string) ([]Reading, error)
	UpdateReading(ctx context.Context, id int64, fn func(*Reading) error) (before, after Reading, err error)
	DeleteReading(ctx context.Context, id int64) (Reading, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

var incubationSchema = []string{
	`CREATE TABLE IF NOT EXISTS parametros (
  id BIGSERIAL PRIMARY KEY,
  empresa VARCHAR(100) NOT NULL,
  lote VARCHAR(50) NOT NULL,
  temp_ideal DOUBLE PRECISION NOT NULL,
  umid_ideal DOUBLE PRECISION NOT NULL,
  pressao_ideal DOUBLE PRECISION,
  lumens DOUBLE PRECISION,
  id_sala INTEGER,
  estagio_ovo VARCHAR(50),
  data_criacao TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_parametros_empresa_lote ON parametros (empresa, lote)`,
	`CREATE TABLE IF NOT EXISTS leituras (
  id BIGSERIAL PRIMARY KEY,
  umidade DOUBLE PRECISION,
  temperatura DOUBLE PRECISION,
  pressao DOUBLE PRECISION,
  lote VARCHAR(100),
  data_inicial TIMESTAMPTZ,
  data_final TIMESTAMPTZ
)`,
	`CREATE INDEX IF NOT EXISTS idx_leituras_lote ON leituras (lote)`,
}

func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range incubationSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure incubation tables: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

/* ===================== PARAMETERS ===================== */

const parameterColumns = `id, empresa, lote, temp_ideal, umid_ideal, pressao_ideal, lumens, id_sala, estagio_ovo, data_criacao`

func scanParameter(row rowScanner) (Parameter, error) {
	var p Parameter
	err := row.Scan(
		&p.ID,
		&p.Company,
		&p.Batch,
		&p.TempIdeal,
		&p.HumidityIdeal,
		&p.PressureIdeal,
		&p.Lumens,
		&p.RoomID,
		&p.EggStage,
		&p.CreatedAt,
	)
	return p, err
}

func (r *PostgresRepo) CreateParameter(ctx context.Context, p Parameter) (Parameter, error) {
	const q = `
INSERT INTO parametros (empresa, lote, temp_ideal, umid_ideal, pressao_ideal, lumens, id_sala, estagio_ovo)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
RETURNING ` + parameterColumns

	created, err := scanParameter(r.db.QueryRowContext(ctx, q,
		p.Company, p.Batch, p.TempIdeal, p.HumidityIdeal, p.PressureIdeal, p.Lumens, p.RoomID, p.EggStage,
	))
	if err != nil {
		return Parameter{}, fmt.Errorf("insert parameter: %w", err)
	}
	return created, nil
}

func (r *PostgresRepo) FindParameters(ctx context.Context, company, batch string) ([]Parameter, error) {
	q := `SELECT ` + parameterColumns + ` FROM parametros WHERE empresa = $1 AND lote = $2 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, company, batch)
	if err != nil {
		return nil, fmt.Errorf("query parameters: %w", err)
	}
	defer rows.Close()

	out := make([]Parameter, 0)
	for rows.Next() {
		p, err := scanParameter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan parameter: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateParameter(ctx context.Context, id int64, fn func(*Parameter) error) (before, after Parameter, err error) {
	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so concurrent edits produce consistent before/after snapshots.
		p, err := scanParameter(tx.QueryRowContext(ctx,
			`SELECT `+parameterColumns+` FROM parametros WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock parameter: %w", err)
		}
		before = p
		if err := fn(&p); err != nil {
			return err
		}

		const q = `
UPDATE parametros
SET empresa = $2, lote = $3, temp_ideal = $4, umid_ideal = $5,
    pressao_ideal = $6, lumens = $7, id_sala = $8, estagio_ovo = $9
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, q,
			id, p.Company, p.Batch, p.TempIdeal, p.HumidityIdeal, p.PressureIdeal, p.Lumens, p.RoomID, p.EggStage,
		); err != nil {
			return fmt.Errorf("update parameter: %w", err)
		}
		after = p
		return nil
	})
	if err != nil {
		return Parameter{}, Parameter{}, err
	}
	return before, after, nil
}

func (r *PostgresRepo) ListCompanies(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, `SELECT DISTINCT empresa FROM parametros WHERE empresa <> '' ORDER BY empresa`)
}

func (r *PostgresRepo) ListBatches(ctx context.Context, company string) ([]string, error) {
	if company == "" {
		return r.distinct(ctx, `SELECT DISTINCT lote FROM parametros WHERE lote <> '' ORDER BY lote`)
	}
	return r.distinct(ctx, `SELECT DISTINCT lote FROM parametros WHERE lote <> '' AND empresa = $1 ORDER BY lote`, company)
}

func (r *PostgresRepo) distinct(ctx context.Context, q string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query distinct: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

/* ===================== READINGS ===================== */

const readingColumns = `id, umidade, temperatura, pressao, lote, data_inicial, data_final`

func scanReading(row rowScanner) (Reading, error) {
	var r Reading
	err := row.Scan(&r.ID, &r.Humidity, &r.Temperature, &r.Pressure, &r.Batch, &r.StartedAt, &r.EndedAt)
	return r, err
}

// CreateReadings inserts the whole batch or nothing.
func (r *PostgresRepo) CreateReadings(ctx context.Context, rs []Reading) ([]Reading, error) {
	const q = `
INSERT INTO leituras (umidade, temperatura, pressao, lote, data_inicial, data_final)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING ` + readingColumns

	out := make([]Reading, 0, len(rs))
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, in := range rs {
			created, err := scanReading(tx.QueryRowContext(ctx, q,
				in.Humidity, in.Temperature, in.Pressure, in.Batch, in.StartedAt, in.EndedAt,
			))
			if err != nil {
				return fmt.Errorf("insert reading: %w", err)
			}
			out = append(out, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) ListReadings(ctx context.Context, batch string) ([]Reading, error) {
	q := `SELECT ` + readingColumns + ` FROM leituras`
	var args []any
	if batch != "" {
		q += ` WHERE lote = $1`
		args = append(args, batch)
	}
	q += ` ORDER BY data_inicial DESC NULLS LAST, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]Reading, 0)
	for rows.Next() {
		rd, err := scanReading(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, rd)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UpdateReading(ctx context.Context, id int64, fn func(*Reading) error) (before, after Reading, err error) {
	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		rd, err := scanReading(tx.QueryRowContext(ctx,
			`SELECT `+readingColumns+` FROM leituras WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock reading: %w", err)
		}
		before = rd
		if err := fn(&rd); err != nil {
			return err
		}

		const q = `
UPDATE leituras
SET umidade = $2, temperatura = $3, pressao = $4, lote = $5, data_inicial = $6, data_final = $7
WHERE id = $1
`
		if _, err := tx.ExecContext(ctx, q,
			id, rd.Humidity, rd.Temperature, rd.Pressure, rd.Batch, rd.StartedAt, rd.EndedAt,
		); err != nil {
			return fmt.Errorf("update reading: %w", err)
		}
		after = rd
		return nil
	})
	if err != nil {
		return Reading{}, Reading{}, err
	}
	return before, after, nil
}

func (r *PostgresRepo) DeleteReading(ctx context.Context, id int64) (Reading, error) {
	rd, err := scanReading(r.db.QueryRowContext(ctx,
		`DELETE FROM leituras WHERE id = $1 RETURNING `+readingColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Reading{}, ErrNotFound
	}
	if err != nil {
		return Reading{}, fmt.Errorf("delete reading: %w", err)
	}
	return rd, nil
}
