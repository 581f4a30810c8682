package audit

import "time"

// Record is an immutable, append-only audit log record.
//
// Invariants:
// - Records are never updated or deleted.
// - UserID is a display back-reference only; removing an identity must not remove its trail.
// - UserName is captured at write time and survives identity renames.
// - Details is redacted JSON; it never contains a password field.
type Record struct {
	ID         int64     `json:"id" db:"id"`
	UserID     *int64    `json:"usuario_id" db:"usuario_id"`
	UserName   string    `json:"usuario_nome" db:"usuario_nome"`
	Action     string    `json:"acao" db:"acao"`
	Details    string    `json:"detalhes" db:"detalhes"`
	Endpoint   string    `json:"endpoint" db:"endpoint"`
	Method     string    `json:"metodo_http" db:"metodo_http"`
	IPAddress  string    `json:"ip_address" db:"ip_address"`
	UserAgent  string    `json:"user_agent" db:"user_agent"`
	StatusCode int       `json:"status_code" db:"status_code"`
	CreatedAt  time.Time `json:"data_hora" db:"data_hora"`
}

// AnonymousName is the display label for records without an authenticated actor.
const AnonymousName = "Anonymous"

// Action labels written by the explicit event helpers.
const (
	ActionLoginSuccess = "LOGIN_SUCESSO"
	ActionLoginFailed  = "LOGIN_FALHOU"
	ActionLogout       = "LOGOUT"
	ActionErrorPrefix  = "ERRO: "
	screenActionPrefix = "ACESSO_TELA_"
	paramActionPrefix  = "PARAMETRO_"
)

// Filter selects records for Query. Zero values mean "no constraint".
type Filter struct {
	UserID *int64
	// Action matches as a substring of the stored label.
	Action string
	// From and To are inclusive bounds on CreatedAt.
	From  *time.Time
	To    *time.Time
	Limit int
}

// DefaultQueryLimit applies when a filter carries no positive limit.
const DefaultQueryLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultQueryLimit
	}
	return f.Limit
}
