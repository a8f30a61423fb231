// Package perenual is the client for the Perenual plant data API.
//
// The client never touches local storage. It returns records, validated
// against the plant schema where the endpoint serves plant details, and
// leaves persistence to the caller.
package perenual

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/metrics"
	"github.com/sakif/plantkeeper/internal/schema"
)

const (
	DefaultBaseURL = "https://perenual.com/api"
	DefaultTimeout = 10 * time.Second

	// MinSpeciesID and MaxSpeciesID bound the provider's species catalogue.
	MinSpeciesID = 1
	MaxSpeciesID = 10102
)

// endpoint labels for logs and metrics
const (
	endpointSpeciesList    = "species_list"
	endpointSpeciesDetails = "species_details"
	endpointDiseases       = "pest_disease_list"
	endpointCareGuides     = "care_guide_list"
)

// errAbsent marks a provider answer that means "no such record".
var errAbsent = errors.New("provider reports no such record")

type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration // per attempt
	MaxRetries    int           // extra attempts after the first, for retryable failures
	RetryInterval time.Duration // initial backoff interval
}

type Option func(*Client)

// WithRandomID replaces the id source used by RandomSpecies.
func WithRandomID(pick func() int64) Option {
	return func(c *Client) { c.pickID = pick }
}

type Client struct {
	http       *resty.Client
	logger     *slog.Logger
	maxRetries int
	interval   time.Duration
	pickID     func() int64
}

func New(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 200 * time.Millisecond
	}

	c := &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetQueryParam("key", cfg.APIKey).
			SetHeader("Accept", "application/json"),
		logger:     logger,
		maxRetries: max(cfg.MaxRetries, 0),
		interval:   cfg.RetryInterval,
		pickID:     func() int64 { return RandomID(nil) },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RandomID draws a species id uniformly from [MinSpeciesID, MaxSpeciesID].
// A nil r uses the global source.
func RandomID(r *rand.Rand) int64 {
	const n = MaxSpeciesID - MinSpeciesID + 1
	if r == nil {
		return MinSpeciesID + rand.Int64N(n)
	}
	return MinSpeciesID + r.Int64N(n)
}

// ListSpecies returns one page of the species catalogue as raw provider items.
// An empty page is an empty, non-nil slice.
func (c *Client) ListSpecies(ctx context.Context, page int) ([]map[string]any, error) {
	body, err := c.get(ctx, endpointSpeciesList, "/species-list", map[string]string{
		"page": strconv.Itoa(page),
	})
	if errors.Is(err, errAbsent) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, apperror.Upstream("species list", err)
	}
	return dataItems(body), nil
}

// SpeciesDetails fetches one species and validates it in partial mode.
// A record that fails validation is still returned, raw, with Problems set.
// It returns nil, nil when the provider has no such species.
func (c *Client) SpeciesDetails(ctx context.Context, id int64) (*Species, error) {
	return c.details(ctx, id, schema.Partial)
}

// RandomSpecies fetches a species picked uniformly from the catalogue and
// validates it in strict mode, with the same raw fallback as SpeciesDetails.
func (c *Client) RandomSpecies(ctx context.Context) (*Species, error) {
	id := c.pickID()
	c.logger.Info("fetching random species", "species_id", id)
	return c.details(ctx, id, schema.Strict)
}

// Diseases lists pests and diseases for a species.
func (c *Client) Diseases(ctx context.Context, speciesID int64) ([]map[string]any, error) {
	body, err := c.get(ctx, endpointDiseases, "/pest-disease-list", map[string]string{
		"id": strconv.FormatInt(speciesID, 10),
	})
	if errors.Is(err, errAbsent) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, apperror.Upstream("pest disease list", err)
	}
	return dataItems(body), nil
}

// CareGuides lists care guides for a species, optionally narrowed to one guide type.
func (c *Client) CareGuides(ctx context.Context, speciesID int64, guide GuideType) ([]map[string]any, error) {
	params := map[string]string{"species_id": strconv.FormatInt(speciesID, 10)}
	if guide != GuideAny {
		params["type"] = string(guide)
	}
	body, err := c.get(ctx, endpointCareGuides, "/species-care-guide-list", params)
	if errors.Is(err, errAbsent) {
		return []map[string]any{}, nil
	}
	if err != nil {
		return nil, apperror.Upstream("care guide list", err)
	}
	return dataItems(body), nil
}

func (c *Client) details(ctx context.Context, id int64, mode schema.Mode) (*Species, error) {
	body, err := c.get(ctx, endpointSpeciesDetails, "/species/details/"+strconv.FormatInt(id, 10), nil)
	if errors.Is(err, errAbsent) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Upstream("species details", err)
	}

	res, err := schema.Validate(body, mode)
	if err != nil {
		problems, _ := apperror.FieldErrors(err)
		metrics.ValidationFallbacks.Inc()
		c.logger.Warn("species failed validation, returning raw payload",
			"species_id", id,
			"mode", mode.String(),
			"problems", problems,
		)
		return &Species{Raw: body, Problems: problems}, nil
	}
	return &Species{Plant: &res.Plant, Raw: body}, nil
}

// get performs one logical GET with bounded retries and returns the decoded
// JSON object. It returns errAbsent for a 404 or an {"error": ...} body.
func (c *Client) get(ctx context.Context, endpoint, path string, params map[string]string) (map[string]any, error) {
	start := time.Now()

	attempt := func() (*resty.Response, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, redactKey(err)
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusNotFound:
			return nil, backoff.Permanent(errAbsent)
		case retryable(code):
			return nil, fmt.Errorf("provider returned status %d", code)
		case code < 200 || code > 299:
			return nil, backoff.Permanent(fmt.Errorf("provider returned status %d", code))
		}
		return resp, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.interval
	resp, err := backoff.RetryWithData(attempt,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))

	var body map[string]any
	if err == nil {
		body, err = decodeObject(resp.Body())
	}

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, errAbsent):
		outcome = metrics.OutcomeNotFound
		c.logger.Info("provider has no record", "endpoint", endpoint, "path", path)
	case err != nil:
		outcome = metrics.OutcomeError
		c.logger.Error("provider request failed",
			"endpoint", endpoint,
			"path", path,
			"duration", time.Since(start),
			"error", err,
		)
	default:
		c.logger.Debug("provider request",
			"endpoint", endpoint,
			"path", path,
			"status", resp.StatusCode(),
			"duration", time.Since(start),
		)
	}
	metrics.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	return body, err
}

// redactKey strips the API key from the URL carried by transport errors.
func redactKey(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if u, perr := url.Parse(uerr.URL); perr == nil {
		q := u.Query()
		if q.Has("key") {
			q.Set("key", "REDACTED")
			u.RawQuery = q.Encode()
			uerr.URL = u.String()
		}
	}
	return err
}

func retryable(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("provider response is not a JSON object")
	}
	if _, failed := obj["error"]; failed {
		return nil, errAbsent
	}
	return obj, nil
}

// dataItems extracts the "data" list, skipping entries that are not objects.
func dataItems(body map[string]any) []map[string]any {
	list, _ := body["data"].([]any)
	items := make([]map[string]any, 0, len(list))
	for _, v := range list {
		if m, ok := v.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}
