package ledger

import (
	"context"
	"log/slog"
)

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// CurrencyRegistry is the allow-list consulted on every create/update.
type CurrencyRegistry interface {
	IsSupported(code string) bool
}

// Notifier feeds the reporting subsystem. All calls are best-effort: the
// Service invokes them after a successful commit, logs failures, and never
// lets them fail the mutation.
type Notifier interface {
	Record(ctx context.Context, owner OwnerID, tx Transaction) error
	RecordUpdate(ctx context.Context, owner OwnerID, old, updated Transaction) error
	RecordDeletion(ctx context.Context, owner OwnerID, tx Transaction) error
}

// LogNotifier is the default Notifier: it just logs what reporting would
// ingest. Swapped for a real reporting client in deployments that have one.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) logger() *slog.Logger {
	if n.Log != nil {
		return n.Log
	}
	return slog.Default()
}

func (n *LogNotifier) Record(_ context.Context, owner OwnerID, tx Transaction) error {
	n.logger().Debug("reporting: transaction recorded",
		"owner", owner, "id", tx.ID, "date", tx.Date.String(),
		"amount", tx.Amount.String(), "direction", tx.Direction)
	return nil
}

func (n *LogNotifier) RecordUpdate(_ context.Context, owner OwnerID, old, updated Transaction) error {
	n.logger().Debug("reporting: transaction updated",
		"owner", owner, "id", updated.ID,
		"old_amount", old.Amount.String(), "new_amount", updated.Amount.String())
	return nil
}

func (n *LogNotifier) RecordDeletion(_ context.Context, owner OwnerID, tx Transaction) error {
	n.logger().Debug("reporting: transaction deleted",
		"owner", owner, "id", tx.ID, "amount", tx.Amount.String())
	return nil
}
