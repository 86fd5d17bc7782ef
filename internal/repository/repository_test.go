package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/movie-booking/internal/database"
	"github.com/iliyamo/movie-booking/internal/model"
)

func TestIsDuplicate(t *testing.T) {
	if !isDuplicate(fmt.Errorf("wrapped: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})) {
		t.Fatal("1062 not classified as duplicate")
	}
	if isDuplicate(&mysql.MySQLError{Number: 1452}) || isDuplicate(errors.New("1062")) {
		t.Fatal("non duplicate classified as duplicate")
	}
}

// openTestDB connects to TEST_MYSQL_DSN and migrates it, or skips.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("TEST_MYSQL_DSN not set")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestRepositoriesAgainstMySQL(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users := NewUserRepo(db)
	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	p, err := users.Register(ctx, email, "secret123", nil, 4)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := users.Register(ctx, email, "secret123", nil, 4); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("second Register = %v, want ErrEmailExists", err)
	}

	tokens := NewTokenRepo(db)
	hash := fmt.Sprintf("%064d", time.Now().UnixNano())
	if err := tokens.StoreRefresh(ctx, p.ID, hash, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("StoreRefresh: %v", err)
	}
	if uid, err := tokens.ValidateRefresh(ctx, hash); err != nil || uid != p.ID {
		t.Fatalf("ValidateRefresh = %q, %v", uid, err)
	}
	if err := tokens.RevokeByHash(ctx, hash); err != nil {
		t.Fatalf("RevokeByHash: %v", err)
	}
	if _, err := tokens.ValidateRefresh(ctx, hash); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ValidateRefresh after revoke = %v", err)
	}
	if n, err := tokens.DeleteExpired(ctx, time.Now().Add(time.Minute)); err != nil || n < 1 {
		t.Fatalf("DeleteExpired = %d, %v", n, err)
	}

	wl := NewWatchlistRepo(db)
	for _, id := range []int64{11, 22} {
		if err := wl.SetWatchlistEntry(ctx, p.ID, model.WatchlistEntry{MovieSummary: model.MovieSummary{ID: id, Title: "m"}}); err != nil {
			t.Fatalf("SetWatchlistEntry: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	items, err := wl.GetWatchlist(ctx, p.ID)
	if err != nil || len(items) != 2 || items[0].ID != 22 {
		t.Fatalf("GetWatchlist = %+v, %v", items, err)
	}
	if ok, _ := wl.IsInWatchlist(ctx, p.ID, 11); !ok {
		t.Fatal("IsInWatchlist(11) = false")
	}
	if err := wl.DeleteWatchlistEntry(ctx, p.ID, 11); err != nil {
		t.Fatalf("DeleteWatchlistEntry: %v", err)
	}
	if ok, _ := wl.IsInWatchlist(ctx, p.ID, 11); ok {
		t.Fatal("IsInWatchlist(11) after delete = true")
	}

	bk := NewBookingRepo(db)
	b, err := bk.CreateBooking(ctx, p.ID, model.Booking{
		ID: "it-1", MovieID: 1, MovieTitle: "m", Seats: []model.SeatID{"A1", "A2"}, TotalPrice: 100000,
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b.CreatedAt.IsZero() || len(b.Seats) != 2 || b.Status != model.BookingUpcoming {
		t.Fatalf("created = %+v", b)
	}
	if err := bk.CancelBooking(ctx, p.ID, "it-1"); err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	if _, err := bk.GetBooking(ctx, p.ID, "it-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBooking after cancel = %v", err)
	}
}
