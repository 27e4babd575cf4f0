package metadata

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avolkova/reelist/internal/errs"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(rt roundTripFunc) *Client {
	c := NewClient("https://meta.example", "key", &http.Client{Transport: rt}, zap.NewNop())
	c.backoff = 0
	return c
}

func TestClient_FetchByExternalID(t *testing.T) {
	var captured *http.Request
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{
			"id": "tt0111161",
			"title": "The Shawshank Redemption",
			"overview": "Two imprisoned men bond over a number of years.",
			"poster_path": "/shawshank.jpg",
			"vote_average": 9.3,
			"release_date": "1994-09-23"
		}`), nil
	})

	rec, err := c.FetchByExternalID(context.Background(), "tt0111161")
	require.NoError(t, err)
	require.Equal(t, "/catalog/tt0111161", captured.URL.Path)
	require.Equal(t, "key", captured.URL.Query().Get("api_key"))
	require.Equal(t, "The Shawshank Redemption", rec.Title)
	require.Equal(t, 1994, *rec.Year)
	require.Equal(t, "https://meta.example/images/w500/shawshank.jpg", rec.PosterURL)
	require.NotNil(t, rec.ReleaseDate)
}

func TestClient_FetchByExternalID_UnknownID(t *testing.T) {
	calls := 0
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusNotFound, `{"error":"not found"}`), nil
	})

	_, err := c.FetchByExternalID(context.Background(), "tt0000000")
	require.ErrorIs(t, err, errs.ErrNotFound)
	require.Equal(t, 1, calls) // 404 must not be retried
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls < 3 {
			return jsonResponse(http.StatusInternalServerError, `{}`), nil
		}
		return jsonResponse(http.StatusOK, `{"id":"tt1","title":"Late"}`), nil
	})

	rec, err := c.FetchByExternalID(context.Background(), "tt1")
	require.NoError(t, err)
	require.Equal(t, "Late", rec.Title)
	require.Equal(t, 3, calls)
}

func TestClient_ExhaustedRetries(t *testing.T) {
	calls := 0
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		calls++
		return jsonResponse(http.StatusServiceUnavailable, `{}`), nil
	})

	_, err := c.FetchByExternalID(context.Background(), "tt1")
	require.Error(t, err)
	require.Equal(t, int(c.attempts), calls)
}

func TestClient_SearchByTitle(t *testing.T) {
	var captured *http.Request
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, `{"results":[
			{"id":"tt0068646","title":"The Godfather","release_date":"1972-03-24"},
			{"id":"tt0071562","title":"The Godfather Part II","release_date":"1974-12-20"}
		]}`), nil
	})

	year := 1972
	out, err := c.SearchByTitle(context.Background(), "The Godfather", &year)
	require.NoError(t, err)
	require.Equal(t, "/search/title", captured.URL.Path)
	require.Equal(t, "The Godfather", captured.URL.Query().Get("query"))
	require.Equal(t, "1972", captured.URL.Query().Get("year"))
	require.Len(t, out, 2)
	require.Equal(t, "tt0068646", out[0].ExternalID)
}

func TestPersonClient_SearchByName(t *testing.T) {
	pc := NewPersonClient("https://people.example", "key", &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "/search/person", req.URL.Path)
			require.Equal(t, "Tom Hanks", req.URL.Query().Get("query"))
			return jsonResponse(http.StatusOK, `{"results":[{"name":"Tom Hanks","profile_path":"/hanks.jpg"}]}`), nil
		}),
	}, zap.NewNop())
	pc.backoff = 0

	p, err := pc.SearchByName(context.Background(), "Tom Hanks")
	require.NoError(t, err)
	require.Equal(t, "Tom Hanks", p.Name)
	require.Equal(t, "https://people.example/images/w500/hanks.jpg", *p.ImageURL)
}

func TestPersonClient_SearchByName_NoMatch(t *testing.T) {
	pc := NewPersonClient("https://people.example", "key", &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"results":[]}`), nil
		}),
	}, zap.NewNop())
	pc.backoff = 0

	_, err := pc.SearchByName(context.Background(), "Nobody Here")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestPersonClient_NoImage(t *testing.T) {
	pc := NewPersonClient("https://people.example", "key", &http.Client{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"results":[{"name":"Tom Hanks"}]}`), nil
		}),
	}, zap.NewNop())
	pc.backoff = 0

	p, err := pc.SearchByName(context.Background(), "Tom Hanks")
	require.NoError(t, err)
	require.Nil(t, p.ImageURL)
}
