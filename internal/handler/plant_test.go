package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/handler"
	"github.com/sakif/plantkeeper/internal/repository/sqlite"
	"github.com/sakif/plantkeeper/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// envelope is the union of the success and error envelopes.
type envelope struct {
	StatusCode int             `json:"status_code"`
	Timestamp  string          `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Count      *int            `json:"count"`
	Error      json.RawMessage `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, rr.Code, env.StatusCode)
	assert.Len(t, env.Timestamp, len("2006-01-02 15:04:05"))
	return env
}

func errorMessage(t *testing.T, env envelope) string {
	t.Helper()
	var msg string
	require.NoError(t, json.Unmarshal(env.Error, &msg))
	return msg
}

// plantRouter wires a PlantHandler over an in-memory SQLite store, the same
// way the server does, so path parameters resolve.
func plantRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := handler.NewPlantHandler(service.NewPlantService(db, nil, testLogger()), testLogger())
	r := chi.NewRouter()
	r.Post("/api/plants", h.HandleCreate)
	r.Get("/api/plants", h.HandleList)
	r.Get("/api/plants/{id}", h.HandleGet)
	r.Put("/api/plants/{id}", h.HandleUpdate)
	r.Delete("/api/plants/{id}", h.HandleDelete)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPlantHandler_CRUD(t *testing.T) {
	r := plantRouter(t)

	t.Run("create", func(t *testing.T) {
		rr := do(t, r, http.MethodPost, "/api/plants",
			`{"id":1,"common_name":"European Silver Fir","scientific_name":["Abies alba"],"poisonous_to_pets":1}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Plant added successfully", env.Message)
		assert.Nil(t, env.Count)

		var p map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, "European Silver Fir", p["common_name"])
		assert.Equal(t, float64(1), p["poisonous_to_pets"])
	})

	t.Run("get", func(t *testing.T) {
		rr := do(t, r, http.MethodGet, "/api/plants/1", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var p map[string]any
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &p))
		assert.Equal(t, []any{"Abies alba"}, p["scientific_name"])
		assert.Nil(t, p["family"])
	})

	t.Run("update keeps path id", func(t *testing.T) {
		rr := do(t, r, http.MethodPut, "/api/plants/1", `{"id":99,"watering":"Frequent"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		env := decodeEnvelope(t, rr)
		assert.Equal(t, "Plant updated successfully", env.Message)
		var p map[string]any
		require.NoError(t, json.Unmarshal(env.Data, &p))
		assert.Equal(t, float64(1), p["id"])
		assert.Equal(t, "Frequent", p["watering"])
		assert.Equal(t, "European Silver Fir", p["common_name"])
	})

	t.Run("delete", func(t *testing.T) {
		rr := do(t, r, http.MethodDelete, "/api/plants/1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Plant deleted successfully", decodeEnvelope(t, rr).Message)

		rr = do(t, r, http.MethodGet, "/api/plants/1", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "Plant with ID 1 not found", errorMessage(t, decodeEnvelope(t, rr)))
	})
}

func TestPlantHandler_CreateErrors(t *testing.T) {
	r := plantRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed json", `{"id":`, http.StatusBadRequest},
		{"array body", `[1,2]`, http.StatusBadRequest},
		{"missing common_name", `{"id":1}`, http.StatusUnprocessableEntity},
		{"wrong type", `{"id":1,"common_name":"Fir","indoor":"yes"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, r, http.MethodPost, "/api/plants", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			decodeEnvelope(t, rr)
		})
	}
}

func TestPlantHandler_ValidationErrorListsFields(t *testing.T) {
	r := plantRouter(t)

	rr := do(t, r, http.MethodPost, "/api/plants", `{"id":1,"common_name":"Fir","indoor":"yes"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var fields map[string]string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Error, &fields))
	assert.Equal(t, "Not a valid boolean.", fields["indoor"])
}

func TestPlantHandler_InvalidID(t *testing.T) {
	r := plantRouter(t)

	for _, target := range []string{"/api/plants/0", "/api/plants/1000001", "/api/plants/abc", "/api/plants/-3"} {
		rr := do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "Invalid ID value", errorMessage(t, decodeEnvelope(t, rr)))
	}
}

func TestPlantHandler_UpdateMissingIsNotFound(t *testing.T) {
	r := plantRouter(t)

	rr := do(t, r, http.MethodPut, "/api/plants/5", `{"indoor":"yes"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPlantHandler_List(t *testing.T) {
	r := plantRouter(t)
	for _, body := range []string{
		`{"id":1,"common_name":"Rose","cycle":"Perennial","indoor":false}`,
		`{"id":2,"common_name":"Wild rose","cycle":"Annual","indoor":true}`,
		`{"id":3,"common_name":"Fir","cycle":"Perennial","indoor":true}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, r, http.MethodPost, "/api/plants", body).Code)
	}

	list := func(t *testing.T, query string) handler.ListResponse {
		t.Helper()
		rr := do(t, r, http.MethodGet, "/api/plants"+query, "")
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		var res handler.ListResponse
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr).Data, &res))
		return res
	}

	t.Run("search counts the whole store", func(t *testing.T) {
		res := list(t, "?search=ROSE")
		assert.Len(t, res.Plants, 2)
		assert.Equal(t, 3, res.Count)
	})

	t.Run("filters", func(t *testing.T) {
		res := list(t, "?filters="+url.QueryEscape(`{"cycle":"Perennial","indoor":true}`))
		require.Len(t, res.Plants, 1)
		assert.Equal(t, "Fir", res.Plants[0].CommonName)
	})

	t.Run("pagination", func(t *testing.T) {
		res := list(t, "?limit=1&offset=1")
		require.Len(t, res.Plants, 1)
		assert.Equal(t, int64(2), res.Plants[0].ID)
	})

	t.Run("empty page is an empty list", func(t *testing.T) {
		rr := do(t, r, http.MethodGet, "/api/plants?offset=50", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"plants":[]`)
	})
}

func TestPlantHandler_ListBadQuery(t *testing.T) {
	r := plantRouter(t)

	for _, query := range []string{
		"limit=ten",
		"offset=x",
		"filters=notjson",
		"filters=" + url.QueryEscape(`{"common_name":"x"}`),
		"filters=" + url.QueryEscape(`{"indoor":"maybe"}`),
		"filters=" + url.QueryEscape(`{"cycle":["a"]}`),
	} {
		rr := do(t, r, http.MethodGet, "/api/plants?"+query, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, query)
	}
}
