package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const movieJSON = `{"id":550,"title":"Fight Club","overview":"An insomniac...","poster_path":"/p.jpg","backdrop_path":null,"vote_average":8.4,"vote_count":27000,"release_date":"1999-10-15"}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), server.URL, "test-key")
	client.retryBase = time.Millisecond
	client.retryCap = 2 * time.Millisecond
	return client
}

func TestNowPlaying_OK(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/now_playing" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Fatalf("missing api key: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":1,"results":[` + movieJSON + `],"total_pages":1,"total_results":1}`))
	})

	list, err := client.NowPlaying(context.Background())
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(list.Results) != 1 || list.Results[0].ID != 550 {
		t.Fatalf("unexpected results: %+v", list.Results)
	}
	m := list.Results[0]
	if m.PosterPath == nil || *m.PosterPath != "/p.jpg" {
		t.Fatalf("unexpected poster path: %v", m.PosterPath)
	}
	if m.BackdropPath != nil {
		t.Fatalf("expected nil backdrop, got %v", *m.BackdropPath)
	}
}

func TestNowPlaying_SchemaViolationFailsCall(t *testing.T) {
	// the shape the original mock handler served: results lack overview and vote_count
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":1,"title":"Mock Movie","poster_path":"/mock.jpg","vote_average":8.5}]}`))
	})

	list, err := client.NowPlaying(context.Background())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(list.Results) != 0 {
		t.Fatalf("expected no partial data, got %+v", list)
	}
	if len(vErr.Fields) == 0 {
		t.Fatal("expected failing fields to be reported")
	}
}

func TestDetails_AcceptsZeroValues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/7" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":7,"title":"Unrated","overview":"","poster_path":null,"backdrop_path":null,"vote_average":0,"vote_count":0,"genres":[{"id":18,"name":"Drama"}],"runtime":90}`))
	})

	m, err := client.Details(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if m.VoteAverage != 0 || len(m.Genres) != 1 || m.Runtime == nil || *m.Runtime != 90 {
		t.Fatalf("unexpected movie: %+v", m)
	}
}

func TestCredits_MissingCastFails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7}`))
	})

	_, err := client.Credits(context.Background(), 7)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestSearch_SendsQueryAndRejectsEmpty(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if got := r.URL.Query().Get("query"); got != "star wars" {
			t.Fatalf("unexpected query: %q", got)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	})

	if _, err := client.Search(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty query")
	}
	if calls != 0 {
		t.Fatalf("expected no request for empty query, got %d", calls)
	}
	list, err := client.Search(context.Background(), "star wars")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if list.Results == nil || len(list.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %+v", list.Results)
	}
}

func TestByGenre_Params(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/discover/movie" || q.Get("with_genres") != "28" || q.Get("sort_by") != "popularity.desc" {
			t.Fatalf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	})

	if _, err := client.ByGenre(context.Background(), 28); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestGetJSON_RetriesTransientServerErrors(t *testing.T) {
	var attempts int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"page":1,"results":[],"total_pages":0,"total_results":0}`))
	})

	if _, err := client.Trending(context.Background()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestGetJSON_NotFoundIsNotRetried(t *testing.T) {
	var attempts int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status_message":"The resource you requested could not be found."}`))
	})

	_, err := client.Details(context.Background(), 99)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestGetJSON_MissingAPIKey(t *testing.T) {
	client := NewClient(nil, "http://127.0.0.1:1", "")
	if _, err := client.NowPlaying(context.Background()); err == nil {
		t.Fatal("expected error without api key")
	}
}
