package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"incubator-platform/internal/audit"
	"incubator-platform/internal/auth"
	"incubator-platform/internal/config"
	"incubator-platform/internal/httpapi"
	"incubator-platform/internal/identity"
	"incubator-platform/internal/incubation"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   *gin.Engine
	identity *identity.Service
	codec    *auth.Codec
	logs     *audit.MemoryRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idRepo := identity.NewMemoryRepo()
	idSvc := identity.NewService(idRepo, nil)
	codec, err := auth.NewCodec(config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour})
	require.NoError(t, err)
	gate := auth.NewGate(codec, identity.NewResolver(idRepo, nil))

	logs := audit.NewMemoryRepo()
	auditSvc := audit.NewService(logs, time.Second)

	h := httpapi.Handlers{
		Identity:   idSvc,
		Codec:      codec,
		Audit:      auditSvc,
		Incubation: incubation.NewService(incubation.NewMemoryRepo()),
	}
	r := gin.New()
	r.Use(gin.Recovery())
	registerRoutes(r, h, gate, audit.NewPipeline(auditSvc))

	return &testEnv{router: r, identity: idSvc, codec: codec, logs: logs}
}

func (e *testEnv) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) user(t *testing.T, name string, admin bool) (identity.Identity, string) {
	t.Helper()
	ctx := context.Background()
	i, err := e.identity.Register(ctx, identity.RegisterInput{Username: name, Email: name + "@example.com", Password: "pw-" + name})
	require.NoError(t, err)
	if admin {
		require.NoError(t, e.identity.SetAdmin(ctx, i.ID, true))
		i.IsAdmin = true
	}
	tok, err := e.codec.IssueFor(time.Now(), i)
	require.NoError(t, err)
	return i, tok
}

func (e *testEnv) actions() []string {
	var out []string
	for _, r := range e.logs.Records() {
		out = append(out, r.Action)
	}
	return out
}

func (e *testEnv) find(action string) (audit.Record, bool) {
	for _, r := range e.logs.Records() {
		if r.Action == action {
			return r, true
		}
	}
	return audit.Record{}, false
}

func TestRegisterThenLogin(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodPost, "/api/register", `{"username":"a","password":"secret","email":"a@b.com"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"User registered successfully!"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/register", `{"username":"a","password":"secret","email":"x@b.com"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"message":"Username already exists!"}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/login", `{"username":"a","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/login", `{"username":"a","password":"secret"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := e.codec.Verify(resp.Token, time.Now())
	require.NoError(t, err)
	assert.False(t, claims.IsAdmin)

	assert.Equal(t, []string{
		"CREATE_USERS", "USUARIO_REGISTRO",
		"CREATE_FAILED_USERS", "USUARIO_REGISTRO",
		audit.ActionLoginFailed,
		audit.ActionLoginSuccess,
	}, e.actions())

	for _, r := range e.logs.Records() {
		assert.NotContains(t, r.Details, "secret", "action %s leaked the password", r.Action)
	}
}

func TestLogs_GateRejectionsAreNotRecorded(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/logs", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Token is missing or malformed!"}`, w.Body.String())

	w = e.do(http.MethodGet, "/api/logs", "", "not.a.token")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"Token is invalid!"}`, w.Body.String())

	assert.Empty(t, e.logs.Records())
}

func TestLogs_NonElevatedDenialIsRecorded(t *testing.T) {
	e := newTestEnv(t)
	u, tok := e.user(t, "ana", false)

	w := e.do(http.MethodGet, "/api/logs", "", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Access denied!"}`, w.Body.String())

	rec, ok := e.find("CONSULTAR_LOGS")
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, rec.StatusCode)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, u.ID, *rec.UserID)
	assert.Equal(t, "ana", rec.UserName)
}

func TestLogs_ElevatedQuery(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user(t, "root", true)
	e.do(http.MethodPost, "/api/login", `{"username":"ghost","password":"x"}`, "")

	w := e.do(http.MethodGet, "/api/logs?acao=LOGIN&limite=5", "", tok)
	require.Equal(t, http.StatusOK, w.Code)

	var recs []audit.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, audit.ActionLoginFailed, recs[0].Action)
	assert.Equal(t, audit.AnonymousName, recs[0].UserName)

	w = e.do(http.MethodGet, "/api/logs?data_inicio=never", "", tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogout_RecordsActor(t *testing.T) {
	e := newTestEnv(t)
	u, tok := e.user(t, "bia", false)

	w := e.do(http.MethodPost, "/api/logout", "", tok)
	require.Equal(t, http.StatusOK, w.Code)

	recs := e.logs.Records()
	require.Len(t, recs, 2, "explicit event plus the pipeline record")
	for _, r := range recs {
		assert.Equal(t, audit.ActionLogout, r.Action)
		require.NotNil(t, r.UserID)
		assert.Equal(t, u.ID, *r.UserID)
	}
}

func TestScreens_RecordViews(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user(t, "carla", false)

	w := e.do(http.MethodGet, "/login?logout=success", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tela":"login","logout_success":true}`, w.Body.String())

	w = e.do(http.MethodGet, "/dashboard", "", tok)
	require.Equal(t, http.StatusOK, w.Code)

	login, ok := e.find("ACESSO_TELA_LOGIN")
	require.True(t, ok)
	assert.Nil(t, login.UserID)

	dash, ok := e.find("ACESSO_TELA_DASHBOARD")
	require.True(t, ok)
	require.NotNil(t, dash.UserID)
}

func TestStatus_StoreFailureIsRecordedAsFault(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/", "", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	rec, ok := e.find("ERRO: API_STATUS_CHECK")
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, rec.StatusCode)
}

func TestParameters_ElevatedFlow(t *testing.T) {
	e := newTestEnv(t)
	_, admin := e.user(t, "root", true)
	_, regular := e.user(t, "ana", false)

	body := `{"empresa":"acme","lote":"L1","temp_ideal":37.5,"umid_ideal":60}`
	w := e.do(http.MethodPost, "/api/parametros", body, regular)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(http.MethodPost, "/api/parametros", body, admin)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodPut, "/api/parametros/1", `{"temp_ideal":38}`, admin)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPut, "/api/parametros/99", `{"temp_ideal":38}`, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodGet, "/api/parametros?empresa=acme&lote=L1", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	var ps []incubation.Parameter
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ps))
	require.Len(t, ps, 1)
	assert.Equal(t, 38.0, ps[0].TempIdeal)

	w = e.do(http.MethodGet, "/api/lotes?empresa=acme", "", regular)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["L1"]`, w.Body.String())

	change, ok := e.find("PARAMETRO_UPDATE")
	require.True(t, ok)
	var d map[string]any
	require.NoError(t, json.Unmarshal([]byte(change.Details), &d))
	assert.Equal(t, 37.5, d["dados_anteriores"].(map[string]any)["temp_ideal"])
	assert.Equal(t, 38.0, d["dados_novos"].(map[string]any)["temp_ideal"])

	_, ok = e.find("CREATE_PARAMETROS")
	assert.True(t, ok)
}

func TestReadings_Flow(t *testing.T) {
	e := newTestEnv(t)
	_, tok := e.user(t, "op", false)

	w := e.do(http.MethodPost, "/api/leituras", `[{"temperatura":37.1,"lote":"L1"},{"temperatura":37.3,"lote":"L1"}]`, tok)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"message":"2 leituras criadas com sucesso","quantidade":2}`, w.Body.String())

	w = e.do(http.MethodPost, "/api/leituras", `{"temperatura":36.8,"lote":"L2"}`, tok)
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(http.MethodGet, "/api/leituras?lote=L1", "", tok)
	require.Equal(t, http.StatusOK, w.Code)
	var rs []incubation.Reading
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rs))
	assert.Len(t, rs, 2)

	w = e.do(http.MethodPut, "/api/leituras/1", `{"umidade":60}`, tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodDelete, "/api/leituras/3", "", tok)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodDelete, "/api/leituras/3", "", tok)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, action := range []string{"CREATE_BATCH_LEITURAS", "UPDATE_LEITURAS", "DELETE_LEITURAS", "DELETAR_LEITURA"} {
		_, ok := e.find(action)
		assert.True(t, ok, action)
	}
}
