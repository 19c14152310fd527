// Package worker consumes transaction sync messages and mirrors the
// rows into the configured spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aaron7k/wealth/internal/amqp"
	"github.com/aaron7k/wealth/internal/sheets"
	"github.com/aaron7k/wealth/internal/storage"
)

// ExportWorker replays saved transactions into the spreadsheet export.
type ExportWorker struct {
	storage *storage.SQLiteRepository
	writer  sheets.TransactionWriter
}

func NewExportWorker(storage *storage.SQLiteRepository, writer sheets.TransactionWriter) *ExportWorker {
	return &ExportWorker{
		storage: storage,
		writer:  writer,
	}
}

// HandleSyncMessage processes a single transaction sync message. A
// returned error makes the consumer nack and requeue the delivery, so
// transient spreadsheet failures retry.
func (w *ExportWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"user_id", msg.UserID)

	t, err := w.storage.GetTransaction(ctx, msg.UserID, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.writer.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to sheets: %w", err)
	}

	slog.InfoContext(ctx, "Successfully exported transaction",
		"id", t.ID,
		"sheets_ref", ref,
		"description", t.Description,
		"amount_cents", t.Amount.Cents)
	return nil
}
