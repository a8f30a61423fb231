// Package service contains the business logic layer.
//
//	Handler (HTTP)  → parses requests, writes envelopes
//	Service         → validates, enforces rules, orchestrates
//	Repository      → reads and writes rows
//
// Services take interfaces (repository.PlantRepository, SpeciesSource) so
// tests can pass in-memory fakes, and never import net/http.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/perenual"
	"github.com/sakif/plantkeeper/internal/repository"
	"github.com/sakif/plantkeeper/internal/schema"
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100

	// ingestConcurrency bounds parallel provider calls in IngestMany.
	ingestConcurrency = 4
)

// SpeciesSource is the part of the provider client the service needs.
// *perenual.Client satisfies it.
type SpeciesSource interface {
	SpeciesDetails(ctx context.Context, id int64) (*perenual.Species, error)
	RandomSpecies(ctx context.Context) (*perenual.Species, error)
}

var _ SpeciesSource = (*perenual.Client)(nil)

type PlantService struct {
	repo   repository.PlantRepository
	source SpeciesSource
	logger *slog.Logger
}

// NewPlantService wires the service. source may be nil when ingestion is not used.
func NewPlantService(repo repository.PlantRepository, source SpeciesSource, logger *slog.Logger) *PlantService {
	return &PlantService{
		repo:   repo,
		source: source,
		logger: logger,
	}
}

// Create validates raw in strict mode and upserts it.
// Creating an id that already exists replaces that row.
func (s *PlantService) Create(ctx context.Context, raw map[string]any) (*model.Plant, error) {
	res, err := schema.Validate(raw, schema.Strict)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.Upsert(ctx, &res.Plant)
	if err != nil {
		s.logger.Error("failed to save plant",
			slog.Int64("id", res.Plant.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating plant: %w", err)
	}

	s.logger.Info("plant saved",
		slog.Int64("id", stored.ID),
		slog.String("common_name", stored.CommonName),
	)
	return stored, nil
}

// ListParams are the raw list inputs; List normalizes them.
type ListParams struct {
	Limit   int
	Offset  int
	Search  string
	Filters []model.Filter
}

// List returns a page of plants. Limit is clamped to 1..MaxListLimit
// (DefaultListLimit when unset) and a negative offset is treated as 0.
func (s *PlantService) List(ctx context.Context, p ListParams) (*repository.ListResult, error) {
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	res, err := s.repo.List(ctx, repository.ListOptions{
		Limit:   p.Limit,
		Offset:  p.Offset,
		Search:  p.Search,
		Filters: p.Filters,
	})
	if err != nil {
		return nil, fmt.Errorf("listing plants: %w", err)
	}
	return res, nil
}

// Get returns apperror.ErrNotFound when the plant does not exist.
func (s *PlantService) Get(ctx context.Context, id int64) (*model.Plant, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting plant: %w", err)
	}
	if p == nil {
		return nil, apperror.NotFound("Plant", id)
	}
	return p, nil
}

// Update applies the supplied fields of raw to plant id.
//
// Existence is checked before validation so a missing plant is always
// reported as not found, never as a validation failure. An "id" key in raw
// is ignored: the path id is authoritative.
func (s *PlantService) Update(ctx context.Context, id int64, raw map[string]any) (*model.Plant, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("updating plant: %w", err)
	}
	if current == nil {
		return nil, apperror.NotFound("Plant", id)
	}

	delete(raw, "id")
	res, err := schema.Validate(raw, schema.Partial)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, &res.Plant, res.Fields)
	if err != nil {
		return nil, fmt.Errorf("updating plant: %w", err)
	}
	if updated == nil {
		// deleted between the check and the write
		return nil, apperror.NotFound("Plant", id)
	}

	s.logger.Info("plant updated",
		slog.Int64("id", id),
		slog.Any("fields", res.Fields),
	)
	return updated, nil
}

// Delete removes plant id and returns what was removed.
func (s *PlantService) Delete(ctx context.Context, id int64) (*model.Plant, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("deleting plant: %w", err)
	}
	if deleted == nil {
		return nil, apperror.NotFound("Plant", id)
	}

	s.logger.Info("plant deleted", slog.Int64("id", id))
	return deleted, nil
}

// Ingest fetches species id from the provider, validates it strictly and
// stores it locally.
func (s *PlantService) Ingest(ctx context.Context, id int64) (*model.Plant, error) {
	if s.source == nil {
		return nil, errors.New("ingest: no provider configured")
	}
	sp, err := s.source.SpeciesDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ingesting species %d: %w", id, err)
	}
	if sp == nil {
		return nil, apperror.NotFound("Species", id)
	}
	return s.store(ctx, sp)
}

// IngestRandom fetches a random provider species and stores it locally.
func (s *PlantService) IngestRandom(ctx context.Context) (*model.Plant, error) {
	if s.source == nil {
		return nil, errors.New("ingest: no provider configured")
	}
	sp, err := s.source.RandomSpecies(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingesting random species: %w", err)
	}
	if sp == nil {
		return nil, apperror.NotFound("Species", "random")
	}
	return s.store(ctx, sp)
}

// store runs strict validation over the raw provider payload. Partial
// validation on the proxy path is not enough for a row we keep.
func (s *PlantService) store(ctx context.Context, sp *perenual.Species) (*model.Plant, error) {
	res, err := schema.Validate(sp.Raw, schema.Strict)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.Upsert(ctx, &res.Plant)
	if err != nil {
		return nil, fmt.Errorf("storing species %d: %w", res.Plant.ID, err)
	}
	s.logger.Info("species ingested",
		slog.Int64("id", stored.ID),
		slog.String("common_name", stored.CommonName),
	)
	return stored, nil
}

// IngestResult is the outcome for one id of IngestMany.
type IngestResult struct {
	ID    int64
	Plant *model.Plant
	Err   error
}

// IngestMany ingests ids concurrently, at most ingestConcurrency at a time.
// Per-id failures are reported in the results, not returned; the error is
// non-nil only when ctx is cancelled. Results keep the order of ids.
func (s *PlantService) IngestMany(ctx context.Context, ids []int64) ([]IngestResult, error) {
	results := make([]IngestResult, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.Ingest(gctx, id)
			results[i] = IngestResult{ID: id, Plant: p, Err: err}
			if err != nil {
				s.logger.Warn("ingest failed", slog.Int64("id", id), slog.String("error", err.Error()))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
