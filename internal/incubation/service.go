package incubation

import (
	"context"
	"fmt"
	"strings"
)

// Service holds the incubation records the dashboard reads and edits.
// Auditing is done by the caller, which knows the actor and request.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

func (s *Service) CreateParameter(ctx context.Context, in ParameterInput) (Parameter, error) {
	in.Company = strings.TrimSpace(in.Company)
	in.Batch = strings.TrimSpace(in.Batch)
	if in.Company == "" || in.Batch == "" || in.TempIdeal == nil || in.HumidityIdeal == nil {
		return Parameter{}, ErrMissingFields
	}
	return s.repo.CreateParameter(ctx, Parameter{
		Company:       in.Company,
		Batch:         in.Batch,
		TempIdeal:     *in.TempIdeal,
		HumidityIdeal: *in.HumidityIdeal,
		PressureIdeal: in.PressureIdeal,
		Lumens:        in.Lumens,
		RoomID:        in.RoomID,
		EggStage:      in.EggStage,
	})
}

// FindParameters requires both company and batch.
func (s *Service) FindParameters(ctx context.Context, company, batch string) ([]Parameter, error) {
	if company == "" || batch == "" {
		return nil, ErrMissingFields
	}
	return s.repo.FindParameters(ctx, company, batch)
}

// UpdateParameter returns the snapshots before and after the change.
func (s *Service) UpdateParameter(ctx context.Context, id int64, u ParameterUpdate) (before, after Parameter, err error) {
	return s.repo.UpdateParameter(ctx, id, func(p *Parameter) error {
		if err := u.apply(p); err != nil {
			return err
		}
		if strings.TrimSpace(p.Company) == "" || strings.TrimSpace(p.Batch) == "" {
			return fmt.Errorf("%w: empresa and lote cannot be empty", ErrInvalidInput)
		}
		return nil
	})
}

func (s *Service) Companies(ctx context.Context) ([]string, error) {
	return s.repo.ListCompanies(ctx)
}

// Batches lists batch names, optionally restricted to one company.
func (s *Service) Batches(ctx context.Context, company string) ([]string, error) {
	return s.repo.ListBatches(ctx, company)
}

func (s *Service) CreateReadings(ctx context.Context, in []ReadingInput) ([]Reading, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no readings", ErrInvalidInput)
	}
	rs := make([]Reading, 0, len(in))
	for _, item := range in {
		rs = append(rs, item.reading())
	}
	return s.repo.CreateReadings(ctx, rs)
}

func (s *Service) ListReadings(ctx context.Context, batch string) ([]Reading, error) {
	return s.repo.ListReadings(ctx, batch)
}

func (s *Service) UpdateReading(ctx context.Context, id int64, u ReadingUpdate) (before, after Reading, err error) {
	return s.repo.UpdateReading(ctx, id, func(r *Reading) error {
		u.apply(r)
		return nil
	})
}

func (s *Service) DeleteReading(ctx context.Context, id int64) (Reading, error) {
	return s.repo.DeleteReading(ctx, id)
}
