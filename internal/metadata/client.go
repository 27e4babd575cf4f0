// Package metadata contains HTTP clients for the external media-metadata
// provider and the person-lookup service. Both are display/enrichment
// collaborators; the durable store never depends on their availability after
// a media row exists.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	retry "github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
	defaultBackoff  = 300 * time.Millisecond

	posterSize = "w500"
)

// Provider resolves external catalog items to media records.
type Provider interface {
	// FetchByExternalID returns the catalog record for an external id.
	// Unresolvable ids report errs.ErrNotFound.
	FetchByExternalID(ctx context.Context, externalID string) (model.MediaRecord, error)

	// SearchByTitle returns catalog records matching a title, optionally
	// narrowed by release year.
	SearchByTitle(ctx context.Context, title string, year *int) ([]model.MediaRecord, error)
}

// PersonLookup resolves a person's display info by name.
type PersonLookup interface {
	// SearchByName returns the best match for name. No match reports
	// errs.ErrNotFound.
	SearchByName(ctx context.Context, name string) (model.Person, error)
}

// rest is the shared GET-with-retry core of both clients. Transport errors,
// 429 and 5xx responses are retried with exponential backoff inside a bounded
// per-attempt timeout; other HTTP errors fail immediately.
type rest struct {
	baseURL  string
	apiKey   string
	httpc    *http.Client
	log      *zap.Logger
	timeout  time.Duration
	attempts uint
	backoff  time.Duration
}

func newREST(baseURL, apiKey string, httpc *http.Client, log *zap.Logger) rest {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultTimeout}
	}
	return rest{
		baseURL:  baseURL,
		apiKey:   apiKey,
		httpc:    httpc,
		log:      log,
		timeout:  defaultTimeout,
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

func (c *rest) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + query.Encode()

	return retry.Do(
		func() error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.httpc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(errs.ErrNotFound)
			case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				return fmt.Errorf("provider responded %s", resp.Status)
			case resp.StatusCode >= 400:
				return retry.Unrecoverable(fmt.Errorf("provider responded %s", resp.Status))
			}

			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				return retry.Unrecoverable(fmt.Errorf("decode provider response: %w", err))
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.backoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("provider request retrying",
				zap.String("path", path),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	)
}

// Client talks to the external media-metadata provider.
type Client struct{ rest }

// NewClient constructs a metadata provider client. httpc may be nil.
func NewClient(baseURL, apiKey string, httpc *http.Client, log *zap.Logger) *Client {
	return &Client{rest: newREST(baseURL, apiKey, httpc, log)}
}

type mediaPayload struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	ReleaseDate string  `json:"release_date"`
}

func (p mediaPayload) toRecord(imageBase string) model.MediaRecord {
	rec := model.MediaRecord{
		ExternalID: p.ID,
		Title:      p.Title,
		Synopsis:   p.Overview,
		Rating:     p.VoteAverage,
	}
	if p.PosterPath != "" {
		rec.PosterURL = imageBase + "/" + posterSize + p.PosterPath
	}
	if t, err := time.Parse("2006-01-02", p.ReleaseDate); err == nil {
		release := t.UTC()
		rec.ReleaseDate = &release
		year := release.Year()
		rec.Year = &year
	}
	return rec
}

// FetchByExternalID returns the canonical catalog record for an external id.
func (c *Client) FetchByExternalID(ctx context.Context, externalID string) (model.MediaRecord, error) {
	var payload mediaPayload
	if err := c.getJSON(ctx, "/catalog/"+url.PathEscape(externalID), nil, &payload); err != nil {
		return model.MediaRecord{}, fmt.Errorf("fetch %q: %w", externalID, err)
	}
	return payload.toRecord(c.imageBase()), nil
}

// SearchByTitle returns catalog records matching title, optionally narrowed
// by release year.
func (c *Client) SearchByTitle(ctx context.Context, title string, year *int) ([]model.MediaRecord, error) {
	query := url.Values{"query": {title}}
	if year != nil {
		query.Set("year", strconv.Itoa(*year))
	}
	var payload struct {
		Results []mediaPayload `json:"results"`
	}
	if err := c.getJSON(ctx, "/search/title", query, &payload); err != nil {
		return nil, fmt.Errorf("search %q: %w", title, err)
	}
	out := make([]model.MediaRecord, 0, len(payload.Results))
	for _, p := range payload.Results {
		out = append(out, p.toRecord(c.imageBase()))
	}
	return out, nil
}

func (c *Client) imageBase() string { return c.baseURL + "/images" }
