// Package tmdb is the remote metadata client.  Every response is decoded
// into a raw schema type and validated before it is converted into model
// types; a response that fails validation fails the call.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/movie-booking/internal/model"
)

const (
	defaultBaseURL     = "https://api.themoviedb.org/3"
	defaultMaxAttempts = 3
	defaultRetryBase   = 200 * time.Millisecond
	defaultRetryCap    = 1200 * time.Millisecond
)

// Client wraps HTTP access to the metadata API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	maxAttempts int
	retryBase   time.Duration
	retryCap    time.Duration
}

// APIError is returned when the API responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	if e == nil {
		return "tmdb api error"
	}
	return fmt.Sprintf("tmdb api error: %s: %s", e.Status, e.Body)
}

// IsNotFound reports whether the error represents a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// NewClient creates a client for apiKey.  If httpClient is nil a client with
// a 12s timeout is used; an empty baseURL selects the public API.
func NewClient(httpClient *http.Client, baseURL, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		maxAttempts: defaultMaxAttempts,
		retryBase:   defaultRetryBase,
		retryCap:    defaultRetryCap,
	}
}

// NowPlaying lists movies currently in theaters.
func (c *Client) NowPlaying(ctx context.Context) (model.MovieList, error) {
	return c.movieList(ctx, "/movie/now_playing", nil)
}

// Trending lists this week's trending movies.
func (c *Client) Trending(ctx context.Context) (model.MovieList, error) {
	return c.movieList(ctx, "/trending/movie/week", nil)
}

// Search runs a free text movie search.
func (c *Client) Search(ctx context.Context, query string) (model.MovieList, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return model.MovieList{}, errors.New("search query is required")
	}
	return c.movieList(ctx, "/search/movie", url.Values{"query": {q}})
}

// ByGenre discovers movies of a genre ordered by popularity.
func (c *Client) ByGenre(ctx context.Context, genreID int64) (model.MovieList, error) {
	if genreID <= 0 {
		return model.MovieList{}, errors.New("genre id is required")
	}
	return c.movieList(ctx, "/discover/movie", url.Values{
		"with_genres": {strconv.FormatInt(genreID, 10)},
		"sort_by":     {"popularity.desc"},
	})
}

// Details fetches a single movie.
func (c *Client) Details(ctx context.Context, movieID int64) (model.Movie, error) {
	if movieID <= 0 {
		return model.Movie{}, errors.New("movie id is required")
	}
	endpoint := fmt.Sprintf("/movie/%d", movieID)
	var raw rawMovie
	if err := c.getJSON(ctx, endpoint, nil, &raw); err != nil {
		return model.Movie{}, err
	}
	if err := check(endpoint, raw); err != nil {
		return model.Movie{}, err
	}
	return raw.toModel(), nil
}

// Credits fetches the cast of a movie.
func (c *Client) Credits(ctx context.Context, movieID int64) (model.Credits, error) {
	if movieID <= 0 {
		return model.Credits{}, errors.New("movie id is required")
	}
	endpoint := fmt.Sprintf("/movie/%d/credits", movieID)
	var raw rawCredits
	if err := c.getJSON(ctx, endpoint, nil, &raw); err != nil {
		return model.Credits{}, err
	}
	if err := check(endpoint, raw); err != nil {
		return model.Credits{}, err
	}
	return raw.toModel(), nil
}

func (c *Client) movieList(ctx context.Context, endpoint string, params url.Values) (model.MovieList, error) {
	var raw rawMovieList
	if err := c.getJSON(ctx, endpoint, params, &raw); err != nil {
		return model.MovieList{}, err
	}
	if err := check(endpoint, raw); err != nil {
		return model.MovieList{}, err
	}
	return raw.toModel(), nil
}

func (c *Client) buildURL(endpoint string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		q[k] = append([]string(nil), vs...)
	}
	q.Set("api_key", c.apiKey)
	return c.baseURL + endpoint + "?" + q.Encode()
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if c.apiKey == "" {
		return errors.New("tmdb api key is missing")
	}
	target := c.buildURL(endpoint, params)

	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		res, err := c.httpClient.Do(req)
		if err != nil {
			if shouldRetryNetworkError(err) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return fmt.Errorf("request %s failed: %w", endpoint, err)
		}

		if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
			snippet, _ := io.ReadAll(io.LimitReader(res.Body, 8<<10))
			_ = res.Body.Close()

			apiErr := &APIError{
				StatusCode: res.StatusCode,
				Status:     res.Status,
				Endpoint:   endpoint,
				Body:       strings.TrimSpace(string(snippet)),
			}
			if shouldRetryStatus(res.StatusCode) && attempt < maxAttempts {
				if waitErr := c.waitRetry(ctx, attempt); waitErr != nil {
					return waitErr
				}
				continue
			}
			return apiErr
		}

		err = json.NewDecoder(res.Body).Decode(out)
		_ = res.Body.Close()
		if err != nil {
			// an undecodable body is a schema violation, not a transport error
			return &ValidationError{Endpoint: endpoint, Fields: []string{"body: " + err.Error()}}
		}
		return nil
	}

	return errors.New("request failed after retries")
}

func shouldRetryStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(c.retryDelay(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := c.retryBase
	if base <= 0 {
		base = defaultRetryBase
	}
	limit := c.retryCap
	if limit <= 0 {
		limit = defaultRetryCap
	}

	delay := base
	for i := 1; i < attempt; i++ {
		if delay >= limit/2 {
			return limit
		}
		delay *= 2
	}
	if delay > limit {
		return limit
	}
	return delay
}
