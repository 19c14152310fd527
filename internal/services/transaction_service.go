package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aaron7k/wealth/internal/amqp"
	"github.com/aaron7k/wealth/internal/core"
	"github.com/aaron7k/wealth/internal/rates"
	"github.com/aaron7k/wealth/internal/storage"
)

// TransactionService orchestrates transaction writes across SQLite,
// the allocation calculator, and AMQP.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
	converter  *rates.Converter
	allocator  *AllocationService
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, converter *rates.Converter) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
		converter:  converter,
		allocator:  NewAllocationService(storage, converter),
	}
}

// balanceDelta is the signed effect a transaction has on its account.
func balanceDelta(t core.Transaction) int64 {
	if t.Type == core.Income {
		return t.Amount.Cents
	}
	return -t.Amount.Cents
}

// CreateTransaction saves the transaction, applies its balance effect,
// then runs allocation and publishes the sync message. The two
// follow-ups never fail the request; the write already succeeded.
func (s *TransactionService) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := s.storage.GetAccount(ctx, t.UserID, t.AccountID); err != nil {
		return core.Transaction{}, fmt.Errorf("load account: %w", err)
	}

	created, err := s.storage.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.storage.ApplyBalanceDelta(ctx, created.UserID, created.AccountID, balanceDelta(created)); err != nil {
		return core.Transaction{}, fmt.Errorf("apply balance: %w", err)
	}

	if err := s.allocator.ProcessIncome(ctx, created); err != nil {
		slog.ErrorContext(ctx, "Income allocation failed",
			"transaction_id", created.ID,
			"user_id", created.UserID,
			"error", err)
		// Don't fail the request - transaction is saved locally
	}

	s.publishSyncMessage(ctx, created.ID, created.UserID)
	return created, nil
}

// UpdateTransaction rewrites the row and re-applies the balance effect:
// the old delta is reversed and the new one applied, each as an atomic
// increment.
func (s *TransactionService) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	old, err := s.storage.GetTransaction(ctx, t.UserID, t.ID)
	if err != nil {
		return err
	}

	if err := s.storage.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}

	if err := s.storage.ApplyBalanceDelta(ctx, old.UserID, old.AccountID, -balanceDelta(old)); err != nil {
		return fmt.Errorf("reverse old balance: %w", err)
	}
	if err := s.storage.ApplyBalanceDelta(ctx, t.UserID, t.AccountID, balanceDelta(t)); err != nil {
		return fmt.Errorf("apply new balance: %w", err)
	}

	s.publishSyncMessage(ctx, t.ID, t.UserID)
	return nil
}

// DeleteTransaction removes the row and reverses its balance effect.
func (s *TransactionService) DeleteTransaction(ctx context.Context, userID, id string) error {
	t, err := s.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteTransaction(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	if err := s.storage.ApplyBalanceDelta(ctx, userID, t.AccountID, -balanceDelta(t)); err != nil {
		return fmt.Errorf("reverse balance: %w", err)
	}
	return nil
}

// Transfer moves money between two of the user's accounts, converting
// the amount when the currencies differ, and records the movement as a
// linked expense/income pair.
func (s *TransactionService) Transfer(ctx context.Context, userID, fromID, toID string, amount core.Money, description string, date time.Time) (core.Transaction, core.Transaction, error) {
	if err := amount.Validate(); err != nil {
		return core.Transaction{}, core.Transaction{}, err
	}
	if fromID == toID {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("transfer: source and destination are the same account")
	}

	from, err := s.storage.GetAccount(ctx, userID, fromID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("load source account: %w", err)
	}
	to, err := s.storage.GetAccount(ctx, userID, toID)
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("load destination account: %w", err)
	}

	if description == "" {
		description = fmt.Sprintf("Transfer %s to %s", from.Name, to.Name)
	}
	converted := core.Money{Cents: s.converter.Convert(amount.Cents, from.Currency, to.Currency)}

	out, err := s.storage.CreateTransaction(ctx, core.Transaction{
		UserID:      userID,
		Description: description,
		Amount:      amount,
		Type:        core.Expense,
		Date:        date,
		AccountID:   fromID,
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("record outgoing transfer: %w", err)
	}
	in, err := s.storage.CreateTransaction(ctx, core.Transaction{
		UserID:      userID,
		Description: description,
		Amount:      converted,
		Type:        core.Income,
		Date:        date,
		AccountID:   toID,
	})
	if err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("record incoming transfer: %w", err)
	}

	if err := s.storage.ApplyBalanceDelta(ctx, userID, fromID, -amount.Cents); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("debit source: %w", err)
	}
	if err := s.storage.ApplyBalanceDelta(ctx, userID, toID, converted.Cents); err != nil {
		return core.Transaction{}, core.Transaction{}, fmt.Errorf("credit destination: %w", err)
	}

	slog.InfoContext(ctx, "Transfer completed",
		"user_id", userID,
		"from_account", fromID,
		"to_account", toID,
		"amount_cents", amount.Cents,
		"converted_cents", converted.Cents)
	return out, in, nil
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, userID string) {
	if s.amqpClient == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping sync message")
		return
	}
	if err := s.amqpClient.PublishTransactionSync(ctx, id, userID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id,
			"error", err)
		// Don't fail the request - transaction is saved locally
	}
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
