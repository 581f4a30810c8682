package audit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"incubator-platform/internal/auth"
	"incubator-platform/internal/identity"
)

// Operation is the unit the pipeline wraps. A returned error is a fault: it is
// recorded with status 500 and handed back to the caller unchanged.
// A zero status means success (200).
type Operation func(ctx context.Context) (status int, err error)

// Binding describes the wrapped operation.
type Binding struct {
	Endpoint string
	// Action is the label bound at registration; empty derives "<METHOD> <endpoint>".
	Action string
	// Function names the operation inside the detail payload.
	Function string
}

func (b Binding) label(method string) string {
	if b.Action != "" {
		return b.Action
	}
	return method + " " + b.Endpoint
}

// Pipeline produces exactly one audit record per wrapped invocation.
type Pipeline struct {
	audit *Service
	now   func() time.Time
}

func NewPipeline(svc *Service) *Pipeline {
	return &Pipeline{audit: svc, now: time.Now}
}

// Service exposes the underlying writer for explicit event helpers.
func (p *Pipeline) Service() *Service { return p.audit }

// Run invokes op and records its outcome. Panics are recorded and re-raised with the
// original value; errors are recorded and returned as-is.
func (p *Pipeline) Run(ctx context.Context, req RequestInfo, b Binding, op Operation) (status int, err error) {
	start := p.now()
	actor := actorFrom(ctx)
	if b.Endpoint == "" {
		b.Endpoint = req.Endpoint
	}

	defer func() {
		if r := recover(); r != nil {
			p.recordFault(ctx, actor, req, b, fmt.Sprint(r), start)
			panic(r)
		}
	}()

	status, err = op(ctx)
	if err != nil {
		p.recordFault(ctx, actor, req, b, err.Error(), start)
		return http.StatusInternalServerError, err
	}
	if status == 0 {
		status = http.StatusOK
	}

	d := CaptureDetails(req, b.Function, start)
	d[keyDurationMS] = p.elapsedMS(start)
	p.audit.Record(ctx, Entry{
		Actor:      actor,
		Request:    req,
		Action:     b.label(req.Method),
		Details:    d,
		StatusCode: status,
	})
	return status, nil
}

func (p *Pipeline) recordFault(ctx context.Context, actor *identity.Identity, req RequestInfo, b Binding, msg string, start time.Time) {
	d := Details{
		keyError:       msg,
		keyFunction:    b.Function,
		keyErrorParams: CaptureDetails(req, b.Function, start),
		keyDurationMS:  p.elapsedMS(start),
	}
	p.audit.Record(ctx, Entry{
		Actor:      actor,
		Request:    req,
		Action:     ActionErrorPrefix + b.label(req.Method),
		Details:    d,
		StatusCode: http.StatusInternalServerError,
	})
}

func (p *Pipeline) elapsedMS(start time.Time) int64 {
	return p.now().Sub(start).Milliseconds()
}

func actorFrom(ctx context.Context) *identity.Identity {
	if i, ok := auth.IdentityFrom(ctx); ok {
		return &i
	}
	return nil
}
