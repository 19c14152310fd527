package sheets

import (
	"context"

	"github.com/aaron7k/wealth/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionWriter appends one transaction row to the export
	// destination and returns a reference to the written row.
	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)
