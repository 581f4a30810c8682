package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"incubator-platform/internal/identity"
	"incubator-platform/pkg/logger"
)

// Repository is the persistence contract for audit records.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, r Record) error
	Query(ctx context.Context, f Filter) ([]Record, error)
}

// Service is the single entry point for writing audit records.
//
// Record is an error boundary: store failures are logged and swallowed so an audit
// problem never changes the outcome of the operation being described.
type Service struct {
	repo    Repository
	clock   func() time.Time
	timeout time.Duration
}

func NewService(repo Repository, writeTimeout time.Duration) *Service {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Service{repo: repo, clock: time.Now, timeout: writeTimeout}
}

var ErrInvalidRecord = errors.New("audit: invalid record")

// Entry is what callers know about an action; Service turns it into a Record.
type Entry struct {
	// Actor is nil for anonymous actions.
	Actor      *identity.Identity
	Request    RequestInfo
	Action     string
	Details    Details
	StatusCode int
}

// Append validates, stamps and persists a record, returning the store error if any.
func (s *Service) Append(ctx context.Context, r Record) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if strings.TrimSpace(r.Action) == "" {
		return ErrInvalidRecord
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	if r.UserID == nil && r.UserName == "" {
		r.UserName = AnonymousName
	}
	return s.repo.Append(ctx, r)
}

// Record writes one entry, best-effort. It never returns an error and never panics on
// store failure; the failure goes to the operational log instead.
func (s *Service) Record(ctx context.Context, e Entry) {
	r := Record{
		Action:     e.Action,
		Details:    encodeDetails(e.Details),
		Endpoint:   e.Request.Endpoint,
		Method:     e.Request.Method,
		IPAddress:  e.Request.IPAddress,
		UserAgent:  e.Request.UserAgent,
		StatusCode: e.StatusCode,
	}
	if e.Actor != nil && e.Actor.ID > 0 {
		id := e.Actor.ID
		r.UserID = &id
		r.UserName = e.Actor.Username
	} else {
		r.UserName = AnonymousName
	}

	// The write outlives a cancelled request but not the configured bound.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.safeAppend(writeCtx, r); err != nil {
		logger.From(ctx).Error("audit write failed",
			"action", r.Action,
			"endpoint", r.Endpoint,
			"status_code", r.StatusCode,
			"err", err,
		)
	}
}

func (s *Service) safeAppend(ctx context.Context, r Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("audit: store panicked")
			slog.Default().Error("audit store panic", "panic", p)
		}
	}()
	return s.Append(ctx, r)
}

// Query returns records matching f, most recent first.
func (s *Service) Query(ctx context.Context, f Filter) ([]Record, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	f.Limit = f.limit()
	return s.repo.Query(ctx, f)
}

func (s *Service) now() time.Time { return s.clock().UTC() }

func timestamp(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
