package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-booking/internal/auth"
	"github.com/iliyamo/movie-booking/internal/booking"
	"github.com/iliyamo/movie-booking/internal/config"
	"github.com/iliyamo/movie-booking/internal/handler"
	"github.com/iliyamo/movie-booking/internal/localstore"
	"github.com/iliyamo/movie-booking/internal/middleware"
	"github.com/iliyamo/movie-booking/internal/model"
	"github.com/iliyamo/movie-booking/internal/optimistic"
	"github.com/iliyamo/movie-booking/internal/repository"
	"github.com/iliyamo/movie-booking/internal/router"
	"github.com/iliyamo/movie-booking/internal/session"
	"github.com/iliyamo/movie-booking/internal/tmdb"
	"github.com/iliyamo/movie-booking/internal/utils"
	"github.com/iliyamo/movie-booking/internal/watchlist"
)

type fakeMovies struct{}

func poster(s string) *string { return &s }

func (fakeMovies) NowPlaying(context.Context) (model.MovieList, error) {
	return model.MovieList{Page: 1, Results: []model.Movie{{ID: 550, Title: "Fight Club"}}, TotalPages: 1, TotalResults: 1}, nil
}
func (fakeMovies) Trending(context.Context) (model.MovieList, error) {
	return model.MovieList{}, &tmdb.ValidationError{Endpoint: "/trending/movie/week", Fields: []string{"results[0].title"}}
}
func (fakeMovies) Search(_ context.Context, q string) (model.MovieList, error) {
	return model.MovieList{Results: []model.Movie{{ID: 1, Title: q}}}, nil
}
func (fakeMovies) ByGenre(context.Context, int64) (model.MovieList, error) { return model.MovieList{}, nil }
func (fakeMovies) Details(_ context.Context, id int64) (model.Movie, error) {
	if id == 404 {
		return model.Movie{}, &tmdb.APIError{StatusCode: http.StatusNotFound, Endpoint: "/movie/404"}
	}
	return model.Movie{ID: id, Title: "Fight Club", PosterPath: poster("/fc.jpg"), VoteAverage: 8.4, ReleaseDate: "1999-10-15"}, nil
}
func (fakeMovies) Credits(_ context.Context, id int64) (model.Credits, error) {
	return model.Credits{ID: id}, nil
}

// fakeAccounts implements both UserStore and TokenStore in memory.
type fakeAccounts struct {
	mu      sync.Mutex
	users   map[string]repository.User
	tokens  map[string]string
	revoked map[string]bool
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: map[string]repository.User{}, tokens: map[string]string{}, revoked: map[string]bool{}}
}

func (f *fakeAccounts) Register(_ context.Context, email, password string, name *string, cost int) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	email = repository.NormalizeEmail(email)
	for _, u := range f.users {
		if u.Email == email {
			return model.UserProfile{}, repository.ErrEmailExists
		}
	}
	hash, _ := utils.HashPassword(password, cost)
	p := model.UserProfile{ID: "user-" + email, Email: email, DisplayName: name, CreatedAt: time.Now()}
	f.users[p.ID] = repository.User{UserProfile: p, PasswordHash: hash}
	return p, nil
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == repository.NormalizeEmail(email) {
			return u, nil
		}
	}
	return repository.User{}, repository.ErrNotFound
}

func (f *fakeAccounts) GetProfile(_ context.Context, id string) (model.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return model.UserProfile{}, repository.ErrNotFound
	}
	return u.UserProfile, nil
}

func (f *fakeAccounts) StoreRefresh(_ context.Context, userID, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[hash] = userID
	return nil
}

func (f *fakeAccounts) ValidateRefresh(_ context.Context, hash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid, ok := f.tokens[hash]
	if !ok || f.revoked[hash] {
		return "", repository.ErrNotFound
	}
	return uid, nil
}

func (f *fakeAccounts) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[hash] = true
	return nil
}

func (f *fakeAccounts) RevokeAllForUser(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for h, uid := range f.tokens {
		if uid == userID {
			f.revoked[h] = true
		}
	}
	return nil
}

// memRemote is an in-memory watchlist and booking backend.
type memRemote struct {
	mu       sync.Mutex
	lists    map[string][]model.WatchlistEntry
	bookings map[string]map[string]model.Booking
	failSet  bool
}

func newMemRemote() *memRemote {
	return &memRemote{lists: map[string][]model.WatchlistEntry{}, bookings: map[string]map[string]model.Booking{}}
}

func (m *memRemote) GetWatchlist(_ context.Context, uid string) ([]model.WatchlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WatchlistEntry(nil), m.lists[uid]...), nil
}

func (m *memRemote) SetWatchlistEntry(_ context.Context, uid string, e model.WatchlistEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet {
		return errors.New("remote unavailable")
	}
	m.lists[uid] = append([]model.WatchlistEntry{e}, m.lists[uid]...)
	return nil
}

func (m *memRemote) DeleteWatchlistEntry(context.Context, string, int64) error { return nil }

func (m *memRemote) CreateBooking(_ context.Context, uid string, b model.Booking) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookings[uid] == nil {
		m.bookings[uid] = map[string]model.Booking{}
	}
	b.CreatedAt = time.Now().UTC()
	m.bookings[uid][b.ID] = b
	return b, nil
}

func (m *memRemote) GetBookings(_ context.Context, uid string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, b := range m.bookings[uid] {
		out = append(out, b)
	}
	return out, nil
}

func (m *memRemote) GetBooking(_ context.Context, uid, id string) (model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[uid][id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *memRemote) CancelBooking(_ context.Context, uid, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[uid][id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.bookings[uid], id)
	return nil
}

type testServer struct {
	*httptest.Server
	remote *memRemote
	client *http.Client
}

func newServer(t *testing.T, remoteMode bool) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 30, BcryptCost: 4}
	remote := newMemRemote()
	runner := optimistic.Runner{Timeout: time.Second}
	root := localstore.New(t.TempDir())

	mgr := session.NewManager(time.Hour, func(id string, a *auth.Session) (session.Watchlist, func(), error) {
		if remoteMode {
			s := watchlist.NewStore(a, remote, runner, logger)
			return s, s.Close, nil
		}
		fs, err := root.Sub(id)
		if err != nil {
			return nil, nil, err
		}
		return watchlist.NewLocal(fs, logger), func() {}, nil
	}, logger)

	checkout := &booking.Checkout{UnitPrice: 50000, Theater: "Cinema XXI", Runner: runner, Logger: logger}
	var svc *booking.Service
	if remoteMode {
		checkout.Creator = remote
		svc = &booking.Service{Store: remote, Encode: utils.GenerateQRCode, Logger: logger}
	}

	accounts := newFakeAccounts()
	e := echo.New()
	e.Validator = handler.NewRequestValidator()
	router.Register(e, router.Handlers{
		Health:    &handler.HealthHandler{},
		Auth:      handler.NewAuthHandler(cfg, accounts, accounts),
		Movies:    handler.NewMovieHandler(fakeMovies{}),
		Booking:   &handler.BookingHandler{Seats: booking.DefaultSeatMap(), Checkout: checkout, Service: svc, Movies: fakeMovies{}},
		Watchlist: &handler.WatchlistHandler{Movies: fakeMovies{}},
	}, router.Middleware{
		Session: middleware.ClientSession(mgr, time.Hour, false, logger),
		Bearer:  middleware.BearerAuth(cfg.JWTSecret),
	})

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	jar := newJar()
	return &testServer{Server: srv, remote: remote, client: &http.Client{Jar: jar}}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

type seatsBody struct {
	Selected []string `json:"selected"`
	Total    int64    `json:"total"`
	Rows     []struct {
		Row   string `json:"row"`
		Seats []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"seats"`
	} `json:"rows"`
}

type watchlistBody struct {
	Items   []model.WatchlistEntry `json:"items"`
	Loading bool                   `json:"loading"`
}

type errorBody struct {
	Error string `json:"error"`
}

func TestHealth(t *testing.T) {
	s := newServer(t, false)
	code, body := s.do(t, http.MethodGet, "/healthz", "")
	if code != http.StatusOK || !strings.Contains(string(body), `"status":"ok"`) {
		t.Fatalf("healthz = %d %s", code, body)
	}
}

func TestMovieEndpoints(t *testing.T) {
	s := newServer(t, false)

	if code, _ := s.do(t, http.MethodGet, "/v1/movies/now-playing", ""); code != http.StatusOK {
		t.Fatalf("now-playing = %d", code)
	}
	code, body := s.do(t, http.MethodGet, "/v1/movies/trending", "")
	if code != http.StatusBadGateway || decode[errorBody](t, body).Error != "validation_failed" {
		t.Fatalf("trending = %d %s", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/movies/search?q=", ""); code != http.StatusBadRequest {
		t.Fatalf("empty search = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/movies/404", ""); code != http.StatusNotFound {
		t.Fatalf("missing movie = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/movies/abc", ""); code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", code)
	}
}

func TestSeatSelectionAndLocalCheckout(t *testing.T) {
	s := newServer(t, false)

	code, body := s.do(t, http.MethodPost, "/v1/movies/550/seats/C7/toggle", "")
	if code != http.StatusConflict {
		t.Fatalf("occupied toggle = %d %s", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/v1/movies/550/seats/Z1/toggle", ""); code != http.StatusBadRequest {
		t.Fatalf("off-map toggle = %d", code)
	}
	code, body = s.do(t, http.MethodPost, "/v1/movies/550/seats/d2/toggle", "")
	if code != http.StatusOK {
		t.Fatalf("toggle = %d %s", code, body)
	}
	view := decode[seatsBody](t, body)
	if len(view.Selected) != 1 || view.Selected[0] != "D2" || view.Total != 50000 {
		t.Fatalf("view = %+v", view)
	}
	if got := view.Rows[3].Seats[1]; got.ID != "D2" || got.Status != "selected" {
		t.Fatalf("D2 = %+v", got)
	}

	code, body = s.do(t, http.MethodPost, "/v1/movies/550/checkout", `{"date":"2026-05-01","time":"19:30"}`)
	if code != http.StatusOK {
		t.Fatalf("checkout = %d %s", code, body)
	}
	receipt := decode[booking.Receipt](t, body)
	if receipt.Persisted || receipt.Booking.TotalPrice != 50000 || receipt.Booking.MovieTitle != "Fight Club" {
		t.Fatalf("receipt = %+v", receipt)
	}

	code, body = s.do(t, http.MethodPost, "/v1/movies/550/checkout", `{}`)
	if code != http.StatusBadRequest || decode[errorBody](t, body).Error != "empty_selection" {
		t.Fatalf("empty checkout = %d %s", code, body)
	}
}

func TestClearSelection(t *testing.T) {
	s := newServer(t, false)
	s.do(t, http.MethodPost, "/v1/movies/1/seats/A1/toggle", "")
	if code, _ := s.do(t, http.MethodDelete, "/v1/selection", ""); code != http.StatusNoContent {
		t.Fatalf("clear = %d", code)
	}
	_, body := s.do(t, http.MethodGet, "/v1/movies/1/seats", "")
	if view := decode[seatsBody](t, body); len(view.Selected) != 0 {
		t.Fatalf("selected after clear = %v", view.Selected)
	}
}

func TestLocalWatchlist(t *testing.T) {
	s := newServer(t, false)
	code, body := s.do(t, http.MethodPost, "/v1/watchlist", `{"movie_id":550}`)
	if code != http.StatusCreated {
		t.Fatalf("add = %d %s", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/v1/watchlist/550", "")
	if code != http.StatusOK || !strings.Contains(string(body), `"in_watchlist":true`) {
		t.Fatalf("status = %d %s", code, body)
	}
	if code, _ := s.do(t, http.MethodPost, "/v1/watchlist", `{}`); code != http.StatusBadRequest {
		t.Fatalf("invalid add = %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/v1/watchlist/550", ""); code != http.StatusOK {
		t.Fatalf("remove = %d", code)
	}
}

func TestRemoteFlow(t *testing.T) {
	s := newServer(t, true)

	if code, _ := s.do(t, http.MethodPost, "/v1/watchlist", `{"movie_id":550}`); code != http.StatusUnauthorized {
		t.Fatalf("signed out add = %d", code)
	}
	s.do(t, http.MethodPost, "/v1/movies/550/seats/A1/toggle", "")
	if code, _ := s.do(t, http.MethodPost, "/v1/movies/550/checkout", `{}`); code != http.StatusUnauthorized {
		t.Fatalf("signed out checkout = %d", code)
	}

	code, body := s.do(t, http.MethodPost, "/v1/auth/register", `{"email":"Ana@Example.com","password":"secret1","display_name":"Ana"}`)
	if code != http.StatusCreated {
		t.Fatalf("register = %d %s", code, body)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/me", ""); code != http.StatusOK {
		t.Fatalf("me = %d", code)
	}

	if code, body := s.do(t, http.MethodPost, "/v1/watchlist", `{"movie_id":550}`); code != http.StatusCreated {
		t.Fatalf("add = %d %s", code, body)
	}
	s.remote.mu.Lock()
	s.remote.failSet = true
	s.remote.mu.Unlock()
	code, body = s.do(t, http.MethodPost, "/v1/watchlist", `{"movie_id":680,"title":"Pulp Fiction"}`)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("failing add = %d %s", code, body)
	}
	_, body = s.do(t, http.MethodGet, "/v1/watchlist", "")
	if strings.Contains(string(body), "Pulp Fiction") || !strings.Contains(string(body), "Fight Club") {
		t.Fatalf("watchlist after rollback = %s", body)
	}

	code, body = s.do(t, http.MethodPost, "/v1/movies/550/checkout", `{"date":"2026-05-01","time":"19:30"}`)
	if code != http.StatusCreated {
		t.Fatalf("checkout = %d %s", code, body)
	}
	receipt := decode[booking.Receipt](t, body)

	code, body = s.do(t, http.MethodGet, "/v1/bookings", "")
	if code != http.StatusOK || !strings.Contains(string(body), receipt.Booking.ID) {
		t.Fatalf("bookings = %d %s", code, body)
	}
	code, body = s.do(t, http.MethodGet, "/v1/bookings/"+receipt.Booking.ID+"/qr", "")
	if code != http.StatusOK || !strings.HasPrefix(string(body), "\x89PNG") {
		t.Fatalf("qr = %d", code)
	}
	if code, _ := s.do(t, http.MethodDelete, "/v1/bookings/"+receipt.Booking.ID, ""); code != http.StatusNoContent {
		t.Fatalf("cancel = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/bookings/"+receipt.Booking.ID, ""); code != http.StatusNotFound {
		t.Fatalf("get cancelled = %d", code)
	}

	if code, _ := s.do(t, http.MethodPost, "/v1/auth/logout", `{}`); code != http.StatusNoContent {
		t.Fatalf("logout = %d", code)
	}
	if code, _ := s.do(t, http.MethodGet, "/v1/me", ""); code != http.StatusUnauthorized {
		t.Fatalf("me after logout = %d", code)
	}
	_, body = s.do(t, http.MethodGet, "/v1/watchlist", "")
	if w := decode[watchlistBody](t, body); len(w.Items) != 0 {
		t.Fatalf("watchlist after sign out = %+v", w.Items)
	}
}

func TestLoginAndRefresh(t *testing.T) {
	s := newServer(t, true)
	s.do(t, http.MethodPost, "/v1/auth/register", `{"email":"bo@example.com","password":"secret1"}`)

	if code, _ := s.do(t, http.MethodPost, "/v1/auth/login", `{"email":"bo@example.com","password":"wrong"}`); code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d", code)
	}
	code, body := s.do(t, http.MethodPost, "/v1/auth/login", `{"email":"bo@example.com","password":"secret1"}`)
	if code != http.StatusOK {
		t.Fatalf("login = %d %s", code, body)
	}
	var resp struct {
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	refresh := `{"refresh_token":"` + resp.Refresh.Token + `"}`
	if code, _ := s.do(t, http.MethodPost, "/v1/auth/refresh", refresh); code != http.StatusOK {
		t.Fatalf("refresh = %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/v1/auth/refresh", refresh); code != http.StatusUnauthorized {
		t.Fatalf("reused refresh = %d", code)
	}
	if code, _ := s.do(t, http.MethodPost, "/v1/auth/register", `{"email":"bo@example.com","password":"secret1"}`); code != http.StatusConflict {
		t.Fatalf("duplicate register = %d", code)
	}
}

func newJar() http.CookieJar {
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}
	return jar
}
