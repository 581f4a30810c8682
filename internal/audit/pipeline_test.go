package audit

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"

	"incubator-platform/internal/auth"
	"incubator-platform/internal/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	cur := start
	return func() time.Time {
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func newTestPipeline() (*Pipeline, *MemoryRepo) {
	repo := NewMemoryRepo()
	p := NewPipeline(NewService(repo, time.Second))
	p.now = steppingClock(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), 25*time.Millisecond)
	return p, repo
}

func TestPipeline_RecordsSuccessWithDefaultLabel(t *testing.T) {
	p, repo := newTestPipeline()
	req := RequestInfo{
		Endpoint: "/api/leituras",
		Method:   http.MethodPost,
		Body:     map[string]any{"temp": 37.5, "password": "nope"},
		Query:    url.Values{"page": {"2"}, "tag": {"a", "b"}},
	}

	status, err := p.Run(context.Background(), req, Binding{Function: "createLeitura"}, func(ctx context.Context) (int, error) {
		return http.StatusCreated, nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)

	recs := repo.Records()
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "POST /api/leituras", r.Action)
	assert.Equal(t, http.StatusCreated, r.StatusCode)
	assert.Equal(t, AnonymousName, r.UserName)
	assert.Nil(t, r.UserID)

	d := decodeDetails(t, r)
	assert.Equal(t, "createLeitura", d[keyFunction])
	assert.Equal(t, map[string]any{"temp": 37.5}, d[keyBody])
	assert.Equal(t, map[string]any{"page": "2", "tag": []any{"a", "b"}}, d[keyQuery])
	assert.Equal(t, float64(25), d[keyDurationMS])
	assert.NotContains(t, r.Details, "nope")
}

func TestPipeline_ZeroStatusMeansOK(t *testing.T) {
	p, repo := newTestPipeline()

	status, err := p.Run(context.Background(), RequestInfo{Method: "GET", Endpoint: "/"}, Binding{Action: "API_STATUS_CHECK"}, func(ctx context.Context) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "API_STATUS_CHECK", repo.Records()[0].Action)
	assert.Equal(t, http.StatusOK, repo.Records()[0].StatusCode)
}

func TestPipeline_ErrorIsRecordedAndReturnedUnchanged(t *testing.T) {
	p, repo := newTestPipeline()
	bad := errors.New("bad")

	_, err := p.Run(context.Background(), RequestInfo{Method: "PUT", Endpoint: "/api/parametros/:id"}, Binding{Action: "PARAMETRO_UPDATE", Function: "updateParametro"}, func(ctx context.Context) (int, error) {
		return 0, bad
	})
	assert.Same(t, bad, err)

	recs := repo.Records()
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "ERRO: PARAMETRO_UPDATE", r.Action)
	assert.Equal(t, http.StatusInternalServerError, r.StatusCode)

	d := decodeDetails(t, r)
	assert.Equal(t, "bad", d[keyError])
	assert.Equal(t, "updateParametro", d[keyFunction])
	assert.Contains(t, d, keyErrorParams)
	assert.Contains(t, d, keyDurationMS)
}

func TestPipeline_PanicIsRecordedAndReraised(t *testing.T) {
	p, repo := newTestPipeline()

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = p.Run(context.Background(), RequestInfo{Method: "GET", Endpoint: "/x"}, Binding{}, func(ctx context.Context) (int, error) {
			panic("boom")
		})
	})

	recs := repo.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "ERRO: GET /x", recs[0].Action)
	assert.Equal(t, "boom", decodeDetails(t, recs[0])[keyError])
}

func TestPipeline_AttributesAuthenticatedActor(t *testing.T) {
	p, repo := newTestPipeline()
	ctx := auth.WithIdentity(context.Background(), identity.Identity{ID: 3, Username: "admin", IsAdmin: true})

	_, err := p.Run(ctx, RequestInfo{Method: "GET", Endpoint: "/api/logs"}, Binding{}, func(ctx context.Context) (int, error) {
		return http.StatusOK, nil
	})
	require.NoError(t, err)

	r := repo.Records()[0]
	require.NotNil(t, r.UserID)
	assert.Equal(t, int64(3), *r.UserID)
	assert.Equal(t, "admin", r.UserName)
}

func TestPipeline_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	p := NewPipeline(NewService(failingRepo{err: errors.New("db down")}, time.Second))

	status, err := p.Run(context.Background(), RequestInfo{Method: "GET", Endpoint: "/"}, Binding{}, func(ctx context.Context) (int, error) {
		return http.StatusAccepted, nil
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, status)
}
