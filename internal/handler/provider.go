package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/perenual"
	"github.com/sakif/plantkeeper/internal/respond"
)

// Provider is the slice of the Perenual client the proxy routes use.
type Provider interface {
	ListSpecies(ctx context.Context, page int) ([]map[string]any, error)
	SpeciesDetails(ctx context.Context, id int64) (*perenual.Species, error)
	RandomSpecies(ctx context.Context) (*perenual.Species, error)
	Diseases(ctx context.Context, speciesID int64) ([]map[string]any, error)
	CareGuides(ctx context.Context, speciesID int64, guide perenual.GuideType) ([]map[string]any, error)
}

var _ Provider = (*perenual.Client)(nil)

// ProviderHandler proxies read-only lookups to the Perenual API.
// Nothing here touches the local store.
type ProviderHandler struct {
	provider Provider
	logger   *slog.Logger
}

func NewProviderHandler(provider Provider, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{provider: provider, logger: logger}
}

type SpeciesPage struct {
	Count  int              `json:"count"`
	Page   int              `json:"page"`
	Plants []map[string]any `json:"plants"`
}

type DiseaseList struct {
	SpeciesID int64            `json:"species_id"`
	Diseases  []map[string]any `json:"diseases"`
}

type GuideList struct {
	SpeciesID int64            `json:"species_id"`
	GuideType *string          `json:"guide_type"`
	Guides    []map[string]any `json:"guides"`
}

// HandleFetch returns one page of the provider catalogue.
//
// HTTP: GET /api/plants/fetch?page=N&per_page=M
//
// per_page is range-checked for clients that send it, but the provider
// decides the real page size.
func (h *ProviderHandler) HandleFetch(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		fail(w, r, h.logger, apperror.BadRequest("Page number must be greater than 0"))
		return
	}
	perPage, err := queryInt(r, "per_page", 10)
	if err != nil || perPage < 1 || perPage > 100 {
		fail(w, r, h.logger, apperror.BadRequest("Per page must be between 1 and 100"))
		return
	}

	items, err := h.provider.ListSpecies(r.Context(), page)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.OK(w, SpeciesPage{Count: len(items), Page: page, Plants: items})
}

// HandleDetails returns one provider species. A record that fails schema
// validation is still returned as the provider sent it.
func (h *ProviderHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	sp, err := h.provider.SpeciesDetails(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if sp == nil {
		fail(w, r, h.logger, apperror.NotFound("Plant", id))
		return
	}
	respond.OK(w, sp)
}

func (h *ProviderHandler) HandleDiseases(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	items, err := h.provider.Diseases(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.OK(w, DiseaseList{SpeciesID: id, Diseases: items})
}

// HandleGuides lists care guides, optionally narrowed with ?type=.
func (h *ProviderHandler) HandleGuides(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	guide, err := perenual.ParseGuideType(r.URL.Query().Get("type"))
	if err != nil {
		fail(w, r, h.logger, apperror.BadRequest("Invalid guide type"))
		return
	}
	items, err := h.provider.CareGuides(r.Context(), id, guide)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	res := GuideList{SpeciesID: id, Guides: items}
	if guide != perenual.GuideAny {
		s := string(guide)
		res.GuideType = &s
	}
	respond.OK(w, res)
}

func (h *ProviderHandler) HandleRandom(w http.ResponseWriter, r *http.Request) {
	sp, err := h.provider.RandomSpecies(r.Context())
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	if sp == nil {
		fail(w, r, h.logger, &apperror.AppError{
			Err:     apperror.ErrNotFound,
			Message: "Failed to fetch random plant",
		})
		return
	}
	h.logger.Debug("random species served", slog.Bool("validated", sp.Validated()))
	respond.OK(w, sp)
}
