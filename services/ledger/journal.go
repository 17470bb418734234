package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PostgresJournal persists spend transactions and per-day aggregates.
// Schema:
//
//	spend_tracking(period_key PK, total_cost, updated_at)
//	spend_transactions(request_id, model, provider, cost, tokens_in, tokens_out, timestamp)
type PostgresJournal struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresJournal creates a journal backed by PostgreSQL
func NewPostgresJournal(db *sql.DB, logger *zap.Logger) *PostgresJournal {
	return &PostgresJournal{db: db, logger: logger}
}

// Record upserts the daily aggregate and inserts the transaction row
func (j *PostgresJournal) Record(ctx context.Context, tx Transaction) error {
	periodKey := tx.Timestamp.Format("2006-01-02")

	upsert := `
		INSERT INTO spend_tracking (period_key, total_cost, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (period_key)
		DO UPDATE SET
			total_cost = spend_tracking.total_cost + EXCLUDED.total_cost,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := j.db.ExecContext(ctx, upsert, periodKey, tx.Cost, time.Now()); err != nil {
		return fmt.Errorf("failed to upsert daily spend: %w", err)
	}

	insert := `
		INSERT INTO spend_transactions
		(request_id, model, provider, cost, tokens_in, tokens_out, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := j.db.ExecContext(ctx, insert,
		tx.RequestID, tx.Model, tx.Provider, tx.Cost, tx.TokensIn, tx.TokensOut, tx.Timestamp); err != nil {
		return fmt.Errorf("failed to insert spend transaction: %w", err)
	}

	return nil
}

// PeriodSpend returns the journaled spend for a given day
func (j *PostgresJournal) PeriodSpend(ctx context.Context, day time.Time) (float64, error) {
	query := `
		SELECT COALESCE(total_cost, 0)
		FROM spend_tracking
		WHERE period_key = $1
	`

	var total float64
	err := j.db.QueryRowContext(ctx, query, day.Format("2006-01-02")).Scan(&total)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query period spend: %w", err)
	}
	return total, nil
}

// CleanupOldData removes journal rows older than the retention window
func (j *PostgresJournal) CleanupOldData(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	res, err := j.db.ExecContext(ctx,
		`DELETE FROM spend_tracking WHERE period_key < $1`, cutoff.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup spend tracking: %w", err)
	}
	trackingRows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	res, err = j.db.ExecContext(ctx,
		`DELETE FROM spend_transactions WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup spend transactions: %w", err)
	}
	txRows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction rows affected: %w", err)
	}

	j.logger.Info("cleaned up old spend data",
		zap.Int64("tracking_rows_deleted", trackingRows),
		zap.Int64("transaction_rows_deleted", txRows))

	return trackingRows + txRows, nil
}

// StartCleanupWorker deletes journal rows past the retention window on a
// fixed interval. Blocks until ctx is cancelled; run it in a goroutine.
func (j *PostgresJournal) StartCleanupWorker(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("started spend journal cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("retention", retention))

	for {
		select {
		case <-ticker.C:
			if _, err := j.CleanupOldData(ctx, retention); err != nil {
				j.logger.Error("failed to cleanup old spend data", zap.Error(err))
			}
		case <-ctx.Done():
			j.logger.Info("stopping spend journal cleanup worker")
			return
		}
	}
}
