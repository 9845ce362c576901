package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbot/internal/domain"
)

// TradeStore persists executed trade records for PnL accounting and audit.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a TradeStore backed by the given client.
func NewTradeStore(client *Client) *TradeStore {
	return &TradeStore{pool: client.Pool()}
}

// InsertExecution records a single completed (or failed) trade execution.
func (s *TradeStore) InsertExecution(ctx context.Context, exec domain.TradeExecution) error {
	const query = `
		INSERT INTO trade_executions (
			id, opportunity_id, path_id, path_kind, route,
			success, profit_usd, gas_cost_usd, tx_hash, failure_reason, executed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		exec.ID,
		exec.OpportunityID,
		exec.PathID,
		exec.PathKind,
		exec.Route,
		exec.Success,
		exec.ProfitUSD,
		exec.GasCostUSD,
		exec.TxHash,
		exec.FailureReason,
		exec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade execution %s: %w", exec.ID, err)
	}
	return nil
}

// ListByDay returns all executions whose executed_at falls within the UTC day
// containing the given time, ordered oldest first.
func (s *TradeStore) ListByDay(ctx context.Context, day time.Time) ([]domain.TradeExecution, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	const query = `
		SELECT id, opportunity_id, path_id, path_kind, route,
		       success, profit_usd, gas_cost_usd, tx_hash, failure_reason, executed_at
		FROM trade_executions
		WHERE executed_at >= $1 AND executed_at < $2
		ORDER BY executed_at ASC`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trade executions: %w", err)
	}
	defer rows.Close()

	var execs []domain.TradeExecution
	for rows.Next() {
		var e domain.TradeExecution
		if err := rows.Scan(
			&e.ID,
			&e.OpportunityID,
			&e.PathID,
			&e.PathKind,
			&e.Route,
			&e.Success,
			&e.ProfitUSD,
			&e.GasCostUSD,
			&e.TxHash,
			&e.FailureReason,
			&e.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade execution: %w", err)
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate trade executions: %w", err)
	}
	return execs, nil
}

// DailyPnL returns the net USD profit (profit minus gas, failures counting
// gas only) over the UTC day containing the given time.
func (s *TradeStore) DailyPnL(ctx context.Context, day time.Time) (float64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)

	const query = `
		SELECT COALESCE(SUM(
			CASE WHEN success THEN profit_usd - gas_cost_usd ELSE -gas_cost_usd END
		), 0)
		FROM trade_executions
		WHERE executed_at >= $1 AND executed_at < $2`

	var pnl float64
	if err := s.pool.QueryRow(ctx, query, start, end).Scan(&pnl); err != nil {
		return 0, fmt.Errorf("postgres: daily pnl: %w", err)
	}
	return pnl, nil
}
