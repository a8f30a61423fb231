package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/model"
	"github.com/sakif/plantkeeper/internal/repository"
	"github.com/sakif/plantkeeper/internal/respond"
	"github.com/sakif/plantkeeper/internal/schema"
	"github.com/sakif/plantkeeper/internal/service"
)

// PlantStore is the local-record side of the service layer.
// *service.PlantService satisfies it.
type PlantStore interface {
	Create(ctx context.Context, raw map[string]any) (*model.Plant, error)
	List(ctx context.Context, p service.ListParams) (*repository.ListResult, error)
	Get(ctx context.Context, id int64) (*model.Plant, error)
	Update(ctx context.Context, id int64, raw map[string]any) (*model.Plant, error)
	Delete(ctx context.Context, id int64) (*model.Plant, error)
}

var _ PlantStore = (*service.PlantService)(nil)

// PlantHandler serves CRUD over locally stored plants.
//
//   - HandleCreate → POST   /api/plants
//   - HandleList   → GET    /api/plants
//   - HandleGet    → GET    /api/plants/{id}
//   - HandleUpdate → PUT    /api/plants/{id}
//   - HandleDelete → DELETE /api/plants/{id}
type PlantHandler struct {
	plants PlantStore
	logger *slog.Logger
}

func NewPlantHandler(plants PlantStore, logger *slog.Logger) *PlantHandler {
	return &PlantHandler{plants: plants, logger: logger}
}

// ListResponse is the data payload of GET /api/plants.
// Count is the number of rows in the store, not the length of Plants.
type ListResponse struct {
	Plants []model.Plant `json:"plants"`
	Count  int           `json:"count"`
}

// HandleCreate validates the body strictly and stores it.
// Posting an id that already exists replaces the stored record.
func (h *PlantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	raw, err := schema.Decode(r.Body)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	p, err := h.plants.Create(r.Context(), raw)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.Success(w, http.StatusCreated, p, "Plant added successfully")
}

// HandleList pages through local plants.
//
// QUERY PARAMETERS:
//
//	limit    page size, default 10, clamped to 1..100
//	offset   rows to skip, default 0
//	search   case-insensitive substring of common_name
//	filters  JSON object of column → value, e.g. {"cycle":"Perennial","indoor":true}
func (h *PlantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", service.DefaultListLimit)
	if err != nil {
		fail(w, r, h.logger, apperror.BadRequest("limit must be an integer"))
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		fail(w, r, h.logger, apperror.BadRequest("offset must be an integer"))
		return
	}
	filters, err := parseFilters(r.URL.Query().Get("filters"))
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}

	res, err := h.plants.List(r.Context(), service.ListParams{
		Limit:   limit,
		Offset:  offset,
		Search:  r.URL.Query().Get("search"),
		Filters: filters,
	})
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	plants := res.Plants
	if plants == nil {
		plants = []model.Plant{}
	}
	respond.OK(w, ListResponse{Plants: plants, Count: res.Total})
}

func (h *PlantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	p, err := h.plants.Get(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.OK(w, p)
}

// HandleUpdate changes only the fields present in the body.
// The path id wins over any "id" in the body.
func (h *PlantHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	raw, err := schema.Decode(r.Body)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	p, err := h.plants.Update(r.Context(), id, raw)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.Success(w, http.StatusOK, p, "Plant updated successfully")
}

func (h *PlantHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	p, err := h.plants.Delete(r.Context(), id)
	if err != nil {
		fail(w, r, h.logger, err)
		return
	}
	respond.Success(w, http.StatusOK, p, "Plant deleted successfully")
}

// parseFilters decodes the filters query parameter. Column names go through
// the model.FilterColumn allow-list; nothing from the query reaches SQL text.
func parseFilters(param string) ([]model.Filter, error) {
	if param == "" {
		return nil, nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(param), &obj); err != nil || obj == nil {
		return nil, apperror.BadRequest("filters must be a JSON object")
	}

	names := make([]string, 0, len(obj))
	for name := range obj {
		names = append(names, name)
	}
	sort.Strings(names)

	filters := make([]model.Filter, 0, len(names))
	for _, name := range names {
		var value string
		switch v := obj[name].(type) {
		case string:
			value = v
		case bool:
			value = strconv.FormatBool(v)
		case float64:
			value = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			return nil, apperror.BadRequest("filter " + strconv.Quote(name) + " must be a string or a boolean")
		}
		f, err := model.NewFilter(name, value)
		if err != nil {
			return nil, apperror.BadRequest(err.Error())
		}
		filters = append(filters, f)
	}
	return filters, nil
}
