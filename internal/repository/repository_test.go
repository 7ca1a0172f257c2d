package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/joseph-ayodele/order-intake/constants"
	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	url := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := Open(ctx, Config{URL: url}, testLogger())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(db.Close)
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return db
}

func TestOrderCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestDB(t), testLogger())

	dob := time.Date(1990, 1, 15, 0, 0, 0, 0, time.UTC)
	created, err := repo.Create(ctx, &CreateOrderRequest{
		FirstName:        "John",
		LastName:         "Smith",
		DateOfBirth:      dob,
		SourceFilename:   "referral.pdf",
		SourceSHA256:     "abc123",
		ExtractionMethod: constants.MethodPDFText,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatal("Create returned zero id")
	}

	got, err := repo.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.FirstName != "John" || got.LastName != "Smith" || got.DateOfBirth.String() != "1990-01-15" {
		t.Fatalf("Get = %+v", got)
	}
	if got.ExtractionMethod != constants.MethodPDFText || got.SourceFilename != "referral.pdf" {
		t.Fatalf("Get provenance = %q %q", got.ExtractionMethod, got.SourceFilename)
	}
	if got.CreatedByUserID != nil {
		t.Fatalf("CreatedByUserID = %v, want nil", *got.CreatedByUserID)
	}

	newLast := "Smythe"
	newDOB := entity.NewDate(time.Date(1991, 2, 3, 0, 0, 0, 0, time.UTC))
	updated, err := repo.Update(ctx, created.ID, entity.OrderUpdate{LastName: &newLast, DateOfBirth: &newDOB})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FirstName != "John" || updated.LastName != "Smythe" || updated.DateOfBirth.String() != "1991-02-03" {
		t.Fatalf("Update = %+v", updated)
	}

	exists, err := repo.ExistsBySHA256(ctx, "abc123")
	if err != nil || !exists {
		t.Fatalf("ExistsBySHA256 = %v, %v", exists, err)
	}
	if exists, _ := repo.ExistsBySHA256(ctx, "other"); exists {
		t.Fatal("ExistsBySHA256 matched unknown hash")
	}

	if err := repo.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, created.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("second Delete: err = %v, want ErrNotFound", err)
	}
	name := "x"
	if _, err := repo.Update(ctx, created.ID, entity.OrderUpdate{FirstName: &name}); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Update missing: err = %v, want ErrNotFound", err)
	}
}

func TestOrderListPagination(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(openTestDB(t), testLogger())

	for i := range 5 {
		_, err := repo.Create(ctx, &CreateOrderRequest{
			FirstName:   fmt.Sprintf("First%d", i),
			LastName:    "Doe",
			DateOfBirth: time.Date(1980+i, 1, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
	}

	n, err := repo.Count(ctx)
	if err != nil || n != 5 {
		t.Fatalf("Count = %d, %v", n, err)
	}
	page, err := repo.List(ctx, 1, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page) != 2 || page[0].FirstName != "First1" || page[1].FirstName != "First2" {
		t.Fatalf("List(1,2) = %v", page)
	}
	empty, err := repo.List(ctx, 10, 10)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("List past end = %v, %v", empty, err)
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	users := NewUserRepository(db, testLogger())

	u, err := users.Create(ctx, "ada", "ada@example.com", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !u.IsActive {
		t.Fatal("new user inactive")
	}
	if _, err := users.Create(ctx, "ada", "other@example.com", "hash"); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("duplicate username: err = %v, want ErrConflict", err)
	}

	byName, err := users.GetByUsername(ctx, "ada")
	if err != nil || byName.ID != u.ID || byName.HashedPassword != "hash" {
		t.Fatalf("GetByUsername = %+v, %v", byName, err)
	}
	if _, err := users.GetByEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if _, err := users.GetByID(ctx, u.ID+100); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("GetByID missing: err = %v", err)
	}

	orders := NewOrderRepository(db, testLogger())
	o, err := orders.Create(ctx, &CreateOrderRequest{
		FirstName:       "Jane",
		LastName:        "Roe",
		DateOfBirth:     time.Date(1975, 6, 1, 0, 0, 0, 0, time.UTC),
		CreatedByUserID: &u.ID,
	})
	if err != nil {
		t.Fatalf("Create order: %v", err)
	}
	got, err := orders.Get(ctx, o.ID)
	if err != nil || got.CreatedByUserID == nil || *got.CreatedByUserID != u.ID {
		t.Fatalf("order owner = %+v, %v", got, err)
	}
}

func TestActivityRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(openTestDB(t), testLogger())

	for _, path := range []string{"/order/", "/order/1"} {
		err := repo.Record(ctx, &entity.ActivityLog{
			RequestID:  "req",
			Method:     "GET",
			Endpoint:   path,
			StatusCode: 200,
			IPAddress:  "127.0.0.1",
			DurationMS: 3,
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	recent, err := repo.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].Endpoint != "/order/1" || recent[0].UserID != nil {
		t.Fatalf("Recent = %+v", recent)
	}
	if recent[1].IPAddress != "127.0.0.1" || recent[1].RequestBody != "" {
		t.Fatalf("Recent[1] = %+v", recent[1])
	}
}

func TestSQLiteDSN(t *testing.T) {
	cases := map[string]string{
		"./data/orders.db":             "./data/orders.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"sqlite:///tmp/o.db":           "/tmp/o.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"file:x?mode=memory":           "file:x?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		"o.db?_pragma=foreign_keys(0)": "o.db?_pragma=foreign_keys(0)",
	}
	for in, want := range cases {
		if got := sqliteDSN(in); got != want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", in, got, want)
		}
	}
	if p := sqlitePath("file:x?mode=memory"); p != "" {
		t.Errorf("sqlitePath(memory) = %q", p)
	}
	if p := sqlitePath("sqlite://./data/o.db?cache=shared"); p != "./data/o.db" {
		t.Errorf("sqlitePath = %q", p)
	}
}
