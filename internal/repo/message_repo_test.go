package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/avennor/go-collab-backend/internal/domain"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestOpenSQLiteMissingParentDir(t *testing.T) {
	if _, err := OpenSQLite(filepath.Join(t.TempDir(), "missing", "test.db")); err == nil {
		t.Fatal("expected error for missing parent directory")
	}
}

func TestCreateAndFindByIdempotencyKey(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := &domain.Message{
		SenderID:       1,
		ReceiverID:     2,
		Content:        "hello",
		Type:           "chat",
		IdempotencyKey: "key-1",
	}
	if err := CreateMessage(ctx, db, m); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == 0 {
		t.Fatal("id not assigned on insert")
	}
	if m.CreatedAt.IsZero() {
		t.Fatal("created_at not defaulted")
	}

	got, err := FindByIdempotencyKey(ctx, db, "key-1", 1)
	if err != nil {
		t.Fatalf("FindByIdempotencyKey: %v", err)
	}
	if got.ID != m.ID || got.Content != "hello" {
		t.Fatalf("found %+v, want the created row", got)
	}

	if _, err := FindByIdempotencyKey(ctx, db, "key-1", 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other sender: err = %v, want ErrNotFound", err)
	}
	if _, err := FindByIdempotencyKey(ctx, db, "no-such-key", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown key: err = %v, want ErrNotFound", err)
	}
}

func TestDuplicateKeySurfacesErrDuplicate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := &domain.Message{SenderID: 1, ReceiverID: 2, Content: "a", Type: "chat", IdempotencyKey: "dup"}
	if err := CreateMessage(ctx, db, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := &domain.Message{SenderID: 1, ReceiverID: 3, Content: "b", Type: "chat", IdempotencyKey: "dup"}
	if err := CreateMessage(ctx, db, second); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second insert: err = %v, want ErrDuplicate", err)
	}
}

func TestSameKeyDifferentSenderAllowed(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	a := &domain.Message{SenderID: 1, ReceiverID: 2, Content: "a", Type: "chat", IdempotencyKey: "shared"}
	b := &domain.Message{SenderID: 2, ReceiverID: 1, Content: "b", Type: "chat", IdempotencyKey: "shared"}
	if err := CreateMessage(ctx, db, a); err != nil {
		t.Fatalf("sender 1: %v", err)
	}
	if err := CreateMessage(ctx, db, b); err != nil {
		t.Fatalf("sender 2: %v", err)
	}
}

func TestMarkDelivered(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := &domain.Message{SenderID: 1, ReceiverID: 2, Content: "x", Type: "chat", IdempotencyKey: "k"}
	if err := CreateMessage(ctx, db, m); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := MarkDelivered(ctx, db, m.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	got, err := FindByIdempotencyKey(ctx, db, "k", 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !got.Delivered {
		t.Fatal("delivered flag not set")
	}
}

func TestInTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := InTransaction(ctx, db, func(tx *gorm.DB) error {
		m := &domain.Message{SenderID: 1, ReceiverID: 2, Content: "x", Type: "chat", IdempotencyKey: "tx"}
		if err := CreateMessage(ctx, tx, m); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the callback error", err)
	}
	if _, err := FindByIdempotencyKey(ctx, db, "tx", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row survived rollback: err = %v", err)
	}
}
