package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aaron7k/wealth/internal/amqp"
	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/sheets/memory"
	"github.com/aaron7k/wealth/internal/storage"
)

func TestHandleSyncMessage(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	defer repo.Close()
	ctx := context.Background()

	account, err := repo.CreateAccount(ctx, core.Account{
		UserID:   "user-1",
		Name:     "Checking",
		Type:     core.AccountChecking,
		Currency: "USD",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}
	saved, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      "user-1",
		Description: "Groceries",
		Amount:      core.Money{Cents: 4200},
		Type:        core.Expense,
		Date:        time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC),
		AccountID:   account.ID,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	store := memory.New()
	w := NewExportWorker(repo, store)

	msg := amqp.NewTransactionSyncMessage(saved.ID, "user-1")
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	items := store.Items()
	if len(items) != 1 {
		t.Fatalf("exported %d transactions, want 1", len(items))
	}
	if items[0].Description != "Groceries" || items[0].Amount.Cents != 4200 {
		t.Errorf("exported = %+v", items[0])
	}

	t.Run("unknown transaction errors for requeue", func(t *testing.T) {
		msg := amqp.NewTransactionSyncMessage("missing", "user-1")
		if err := w.HandleSyncMessage(ctx, msg); err == nil {
			t.Error("HandleSyncMessage should fail for a missing transaction")
		}
	})
}
