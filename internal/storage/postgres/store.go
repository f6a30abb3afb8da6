package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultfolio/internal/model"
)

// Store provides Postgres persistence for snapshot history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertSnapshots inserts or updates portfolio snapshot rows. The per-vault
// breakdown is stored as JSONB alongside the portfolio totals.
func (s *Store) UpsertSnapshots(ctx context.Context, snapshots []model.PortfolioSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snapshot := range snapshots {
		vaults, err := json.Marshal(snapshot.Vaults)
		if err != nil {
			return fmt.Errorf("marshal vault breakdown: %w", err)
		}
		batch.Queue(`
			INSERT INTO portfolio_snapshots (
				chain_id, account, taken_at,
				total_portfolio_value_usd, total_wallet_value_usd, total_vault_value_usd,
				net_deposits_usd, total_interest_earned_usd,
				projected_annual_return_usd, projected_monthly_return_usd,
				vaults, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now(),now())
			ON CONFLICT (chain_id, account, taken_at)
			DO UPDATE SET
				total_portfolio_value_usd = EXCLUDED.total_portfolio_value_usd,
				total_wallet_value_usd = EXCLUDED.total_wallet_value_usd,
				total_vault_value_usd = EXCLUDED.total_vault_value_usd,
				net_deposits_usd = EXCLUDED.net_deposits_usd,
				total_interest_earned_usd = EXCLUDED.total_interest_earned_usd,
				projected_annual_return_usd = EXCLUDED.projected_annual_return_usd,
				projected_monthly_return_usd = EXCLUDED.projected_monthly_return_usd,
				vaults = EXCLUDED.vaults,
				updated_at = now()
		`,
			int64(snapshot.ChainID),
			snapshot.Account,
			snapshot.TakenAt,
			snapshot.TotalPortfolioValueUSD,
			snapshot.TotalWalletValueUSD,
			snapshot.TotalVaultValueUSD,
			snapshot.NetDepositsUSD,
			snapshot.TotalInterestEarnedUSD,
			snapshot.ProjectedAnnualReturnUSD,
			snapshot.ProjectedMonthlyReturnUSD,
			vaults,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snapshots {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// PutSnapshot persists one snapshot, satisfying storage.SnapshotSink.
func (s *Store) PutSnapshot(snapshot model.PortfolioSnapshot) error {
	return s.UpsertSnapshots(context.Background(), []model.PortfolioSnapshot{snapshot})
}
