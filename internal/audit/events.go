package audit

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"incubator-platform/internal/identity"
)

// LoginAttempt records a login outcome. The actor is always anonymous: on failure there
// is none, and on success the token has not been presented yet.
func (s *Service) LoginAttempt(ctx context.Context, req RequestInfo, username string, success bool, reason string) {
	action, status := ActionLoginSuccess, http.StatusOK
	if !success {
		action, status = ActionLoginFailed, http.StatusUnauthorized
	}
	d := Details{
		"username":   username,
		keyTimestamp: timestamp(s.now()),
	}
	if reason != "" {
		d["motivo"] = reason
	}
	s.Record(ctx, Entry{Request: req, Action: action, Details: d, StatusCode: status})
}

func (s *Service) Logout(ctx context.Context, req RequestInfo, actor identity.Identity) {
	s.Record(ctx, Entry{
		Actor:   &actor,
		Request: req,
		Action:  ActionLogout,
		Details: Details{
			"username":   actor.Username,
			keyTimestamp: timestamp(s.now()),
		},
		StatusCode: http.StatusOK,
	})
}

// ScreenAccess records a page view as ACESSO_TELA_<SCREEN>.
func (s *Service) ScreenAccess(ctx context.Context, req RequestInfo, actor *identity.Identity, screen string, extra Details) {
	d := Details{
		"tela":       screen,
		keyTimestamp: timestamp(s.now()),
	}
	for k, v := range extra {
		d[k] = v
	}
	s.Record(ctx, Entry{
		Actor:      actor,
		Request:    req,
		Action:     screenActionPrefix + strings.ToUpper(screen),
		Details:    d,
		StatusCode: http.StatusOK,
	})
}

// CRUD records a data operation as <OPERATION>_<TABLE>, e.g. CREATE_LEITURAS.
// recordID may be nil. data is redacted like every other payload.
func (s *Service) CRUD(ctx context.Context, req RequestInfo, actor *identity.Identity, table, operation string, recordID any, data map[string]any) {
	d := Details{
		"tabela":      table,
		"operacao":    operation,
		"registro_id": recordID,
		keyTimestamp:  timestamp(s.now()),
	}
	if data != nil {
		d["dados"] = data
	}
	s.Record(ctx, Entry{
		Actor:      actor,
		Request:    req,
		Action:     fmt.Sprintf("%s_%s", strings.ToUpper(operation), strings.ToUpper(table)),
		Details:    d,
		StatusCode: http.StatusOK,
	})
}

// ParameterChange records a configuration parameter mutation with before/after snapshots.
func (s *Service) ParameterChange(ctx context.Context, req RequestInfo, actor identity.Identity, parameterID int64, before, after any, operation string) {
	if operation == "" {
		operation = "UPDATE"
	}
	s.Record(ctx, Entry{
		Actor:   &actor,
		Request: req,
		Action:  paramActionPrefix + strings.ToUpper(operation),
		Details: Details{
			"parametro_id":     parameterID,
			"operacao":         operation,
			"dados_anteriores": before,
			"dados_novos":      after,
			keyTimestamp:       timestamp(s.now()),
		},
		StatusCode: http.StatusOK,
	})
}
