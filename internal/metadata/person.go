package metadata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/avolkova/reelist/internal/errs"
	"github.com/avolkova/reelist/internal/model"
)

// PersonClient talks to the external person-lookup service.
type PersonClient struct{ rest }

// NewPersonClient constructs a person-lookup client. httpc may be nil.
func NewPersonClient(baseURL, apiKey string, httpc *http.Client, log *zap.Logger) *PersonClient {
	return &PersonClient{rest: newREST(baseURL, apiKey, httpc, log)}
}

// SearchByName returns the best match for a display name. The image reference
// is optional even on a successful match.
func (c *PersonClient) SearchByName(ctx context.Context, name string) (model.Person, error) {
	var payload struct {
		Results []struct {
			Name        string `json:"name"`
			ProfilePath string `json:"profile_path"`
		} `json:"results"`
	}
	if err := c.getJSON(ctx, "/search/person", url.Values{"query": {name}}, &payload); err != nil {
		return model.Person{}, fmt.Errorf("lookup %q: %w", name, err)
	}
	if len(payload.Results) == 0 {
		return model.Person{}, errs.ErrNotFound
	}

	person := model.Person{Name: name}
	if path := payload.Results[0].ProfilePath; path != "" {
		img := c.baseURL + "/images/" + posterSize + path
		person.ImageURL = &img
	}
	return person, nil
}
