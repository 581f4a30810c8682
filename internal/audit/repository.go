package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"incubator-platform/pkg/utils"
)

// PostgresRepo persists records in the logs table.
// Each Append runs in its own short transaction, separate from any business transaction,
// so rolling back an operation never erases the trail of the attempt.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// The usuario_id back-reference is SET NULL on identity removal; records are never cascaded away.
var logsSchema = []string{
	`CREATE TABLE IF NOT EXISTS logs (
  id BIGSERIAL PRIMARY KEY,
  usuario_id BIGINT NULL REFERENCES users(id) ON DELETE SET NULL,
  usuario_nome VARCHAR(80),
  acao VARCHAR(100) NOT NULL,
  detalhes TEXT,
  endpoint VARCHAR(200),
  metodo_http VARCHAR(10),
  ip_address VARCHAR(45),
  user_agent VARCHAR(500),
  status_code INTEGER,
  data_hora TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_data_hora ON logs (data_hora DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_usuario_id ON logs (usuario_id)`,
}

// EnsureSchema creates the logs table and its indexes when missing.
// The users table must exist first.
func (r *PostgresRepo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range logsSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure logs table: %w", err)
		}
	}
	return nil
}

// Column widths from the schema; longer values are cut rather than failing the insert.
const (
	maxUserName  = 80
	maxAction    = 100
	maxEndpoint  = 200
	maxMethod    = 10
	maxIPAddress = 45
	maxUserAgent = 500
)

func (r *PostgresRepo) Append(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO logs (
  usuario_id, usuario_nome, acao, detalhes, endpoint, metodo_http,
  ip_address, user_agent, status_code, data_hora
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
RETURNING id
`
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		var id int64
		if err := tx.QueryRowContext(ctx, q,
			nullableID(rec.UserID),
			truncate(rec.UserName, maxUserName),
			truncate(rec.Action, maxAction),
			rec.Details,
			truncate(rec.Endpoint, maxEndpoint),
			truncate(rec.Method, maxMethod),
			truncate(rec.IPAddress, maxIPAddress),
			truncate(rec.UserAgent, maxUserAgent),
			rec.StatusCode,
			rec.CreatedAt,
		).Scan(&id); err != nil {
			return fmt.Errorf("insert audit log: %w", err)
		}
		return nil
	})
}

func (r *PostgresRepo) Query(ctx context.Context, f Filter) ([]Record, error) {
	query := `
SELECT id, usuario_id, usuario_nome, acao, detalhes, endpoint, metodo_http,
       ip_address, user_agent, status_code, data_hora
FROM logs
WHERE 1=1`

	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.UserID != nil {
		query += " AND usuario_id = " + next(*f.UserID)
	}
	if f.Action != "" {
		query += " AND strpos(acao, " + next(f.Action) + ") > 0"
	}
	if f.From != nil {
		query += " AND data_hora >= " + next(*f.From)
	}
	if f.To != nil {
		query += " AND data_hora <= " + next(*f.To)
	}
	query += " ORDER BY data_hora DESC, id DESC LIMIT " + next(f.limit())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit logs: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec                                        Record
			userID, status                             sql.NullInt64
			name, details, endpoint, method, ip, agent sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&userID,
			&name,
			&rec.Action,
			&details,
			&endpoint,
			&method,
			&ip,
			&agent,
			&status,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit log: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			rec.UserID = &id
		}
		rec.UserName = name.String
		rec.Details = details.String
		rec.Endpoint = endpoint.String
		rec.Method = method.String
		rec.IPAddress = ip.String
		rec.UserAgent = agent.String
		rec.StatusCode = int(status.Int64)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit logs: %w", err)
	}
	return out, nil
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Cut on a rune boundary.
	cut := s[:n]
	for len(cut) > 0 && !isRuneStart(s[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	return strings.ToValidUTF8(cut, "")
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
