// Package worker holds the background jobs of bilancio-worker: the ledger
// event consumer that keeps the spreadsheet mirror current, and the monthly
// report archiver.
package worker

import (
	"context"
	"errors"
	"fmt"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	"bilancio/internal/ledger/google"
	applog "bilancio/internal/log"
)

// Mirror is the external copy of the ledger. *google.Mirror satisfies it.
type Mirror interface {
	Upsert(ctx context.Context, r google.Row) (string, error)
	Remove(ctx context.Context, key string) error
}

// SyncWorker applies ledger events to the mirror. Events carry ids only, so
// creates and updates reload the entry from the store.
type SyncWorker struct {
	store  ledger.Store
	mirror Mirror
	logger *applog.Logger
}

func NewSyncWorker(store ledger.Store, mirror Mirror, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.Nop()
	}
	return &SyncWorker{store: store, mirror: mirror, logger: logger.WithComponent(applog.ComponentWorker)}
}

// HandleEvent is the amqp.Client.Consume handler. A returned error requeues the event.
func (w *SyncWorker) HandleEvent(ctx context.Context, evt *amqp.LedgerEvent) error {
	key := google.Key(evt.Kind, evt.EntryID)
	w.logger.InfoContext(ctx, "Processing ledger event",
		applog.FieldEventID, evt.EventID,
		applog.FieldOperation, evt.Op,
		applog.FieldEntryKind, evt.Kind,
		applog.FieldEntryID, evt.EntryID,
		applog.FieldUserID, evt.UserID)

	if evt.Op == amqp.OpDelete {
		return w.remove(ctx, key)
	}

	row, err := w.load(ctx, evt)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before this event was consumed; its delete event follows.
		return w.remove(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}

	ref, err := w.mirror.Upsert(ctx, row)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to mirror entry", applog.FieldError, err, applog.FieldEventID, evt.EventID)
		return fmt.Errorf("mirror %s: %w", key, err)
	}
	w.logger.InfoContext(ctx, "Mirrored ledger entry",
		applog.FieldOperation, applog.OpSync,
		applog.FieldEventID, evt.EventID,
		applog.FieldSheetsRef, ref)
	return nil
}

func (w *SyncWorker) load(ctx context.Context, evt *amqp.LedgerEvent) (google.Row, error) {
	switch evt.Kind {
	case core.KindIncome:
		in, err := w.store.GetIncome(ctx, evt.UserID, evt.EntryID)
		if err != nil {
			return google.Row{}, err
		}
		return google.IncomeRow(in), nil
	case core.KindExpense:
		e, err := w.store.GetExpense(ctx, evt.UserID, evt.EntryID)
		if err != nil {
			return google.Row{}, err
		}
		return google.ExpenseRow(e), nil
	case core.KindBudget:
		b, err := w.store.GetBudget(ctx, evt.UserID, evt.EntryID)
		if err != nil {
			return google.Row{}, err
		}
		return google.BudgetRow(b), nil
	default:
		return google.Row{}, fmt.Errorf("unknown entry kind %q", evt.Kind)
	}
}

func (w *SyncWorker) remove(ctx context.Context, key string) error {
	if err := w.mirror.Remove(ctx, key); err != nil {
		w.logger.ErrorContext(ctx, "Failed to remove mirrored entry", applog.FieldError, err, "key", key)
		return fmt.Errorf("remove %s: %w", key, err)
	}
	w.logger.InfoContext(ctx, "Removed mirrored entry", applog.FieldOperation, applog.OpDelete, "key", key)
	return nil
}
