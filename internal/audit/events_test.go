package audit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"incubator-platform/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *MemoryRepo) {
	repo := NewMemoryRepo()
	svc := NewService(repo, time.Second)
	svc.clock = fixedClock(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))
	return svc, repo
}

func TestLoginAttempt(t *testing.T) {
	svc, repo := newTestService()
	req := RequestInfo{Endpoint: "/api/login", Method: http.MethodPost, IPAddress: "10.1.1.1"}

	svc.LoginAttempt(context.Background(), req, "ana", true, "")
	svc.LoginAttempt(context.Background(), req, "ana", false, "invalid credentials")

	recs := repo.Records()
	require.Len(t, recs, 2)

	assert.Equal(t, ActionLoginSuccess, recs[0].Action)
	assert.Equal(t, http.StatusOK, recs[0].StatusCode)
	assert.Equal(t, AnonymousName, recs[0].UserName)
	assert.NotContains(t, decodeDetails(t, recs[0]), "motivo")

	assert.Equal(t, ActionLoginFailed, recs[1].Action)
	assert.Equal(t, http.StatusUnauthorized, recs[1].StatusCode)
	d := decodeDetails(t, recs[1])
	assert.Equal(t, "ana", d["username"])
	assert.Equal(t, "invalid credentials", d["motivo"])
	assert.Equal(t, "2026-04-01T08:00:00Z", d[keyTimestamp])
}

func TestLogout(t *testing.T) {
	svc, repo := newTestService()
	svc.Logout(context.Background(), RequestInfo{Endpoint: "/api/logout", Method: "POST"}, identity.Identity{ID: 2, Username: "bia"})

	r := repo.Records()[0]
	assert.Equal(t, ActionLogout, r.Action)
	require.NotNil(t, r.UserID)
	assert.Equal(t, int64(2), *r.UserID)
	assert.Equal(t, "bia", r.UserName)
}

func TestScreenAccess(t *testing.T) {
	svc, repo := newTestService()
	svc.ScreenAccess(context.Background(), RequestInfo{Endpoint: "dashboard", Method: "GET"}, nil, "dashboard", Details{"ip": "1.2.3.4"})

	r := repo.Records()[0]
	assert.Equal(t, "ACESSO_TELA_DASHBOARD", r.Action)
	assert.Nil(t, r.UserID)
	d := decodeDetails(t, r)
	assert.Equal(t, "dashboard", d["tela"])
	assert.Equal(t, "1.2.3.4", d["ip"])
}

func TestCRUD_RedactsData(t *testing.T) {
	svc, repo := newTestService()
	actor := &identity.Identity{ID: 1, Username: "admin"}
	svc.CRUD(context.Background(), RequestInfo{}, actor, "users", "create", 9, map[string]any{
		"username": "novo",
		"password": "topsecret",
	})

	r := repo.Records()[0]
	assert.Equal(t, "CREATE_USERS", r.Action)
	assert.NotContains(t, r.Details, "topsecret")
	d := decodeDetails(t, r)
	assert.Equal(t, float64(9), d["registro_id"])
	assert.Equal(t, map[string]any{"username": "novo"}, d["dados"])
}

func TestParameterChange_DefaultsToUpdate(t *testing.T) {
	svc, repo := newTestService()
	svc.ParameterChange(context.Background(), RequestInfo{}, identity.Identity{ID: 1, Username: "admin"}, 5,
		map[string]any{"temp_max": 38.0},
		map[string]any{"temp_max": 38.5},
		"")

	r := repo.Records()[0]
	assert.Equal(t, "PARAMETRO_UPDATE", r.Action)
	d := decodeDetails(t, r)
	assert.Equal(t, map[string]any{"temp_max": 38.0}, d["dados_anteriores"])
	assert.Equal(t, map[string]any{"temp_max": 38.5}, d["dados_novos"])
}
