package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OwnerTotals aggregates the counters of every link an owner holds.
type OwnerTotals struct {
	Links        int64
	Clicks       int64
	UniqueClicks int64
	Conversions  int64
	Revenue      float64
}

// LinkTally is a per-link aggregate recomputed from the raw click and
// conversion tables, paired with the denormalized counters currently stored on
// the link row. The reconciler compares the two and repairs drift.
type LinkTally struct {
	Hash                string
	StoredClicks        int64
	StoredUniqueClicks  int64
	StoredConversions   int64
	StoredRevenue       float64
	ActualClicks        int64
	ActualUniqueClicks  int64
	ActualConversions   int64
	ActualRevenue       float64
}

// Drifted reports whether the stored counters disagree with the raw tables.
func (t LinkTally) Drifted() bool {
	return t.StoredClicks != t.ActualClicks ||
		t.StoredUniqueClicks != t.ActualUniqueClicks ||
		t.StoredConversions != t.ActualConversions ||
		t.StoredRevenue != t.ActualRevenue
}

// StatsRepository runs the aggregate queries behind the read APIs and the
// counter reconciler. It goes through pgx directly: these are plain SUMs and
// GROUP BYs with no entity mapping to speak of.
type StatsRepository interface {
	OwnerTotals(ctx context.Context, ownerID string) (*OwnerTotals, error)
	LinkTallies(ctx context.Context, limit int) ([]LinkTally, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository returns a pgx-backed StatsRepository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) OwnerTotals(ctx context.Context, ownerID string) (*OwnerTotals, error) {
	const q = `
		SELECT COUNT(*),
		       COALESCE(SUM(click_count), 0),
		       COALESCE(SUM(unique_click_count), 0),
		       COALESCE(SUM(conversion_count), 0),
		       COALESCE(SUM(total_revenue), 0)
		FROM affiliate_links
		WHERE owner_id = $1`

	var totals OwnerTotals
	err := r.pool.QueryRow(ctx, q, ownerID).Scan(
		&totals.Links,
		&totals.Clicks,
		&totals.UniqueClicks,
		&totals.Conversions,
		&totals.Revenue,
	)
	if err != nil {
		return nil, fmt.Errorf("owner totals: %w", err)
	}
	return &totals, nil
}

func (r *statsRepository) LinkTallies(ctx context.Context, limit int) ([]LinkTally, error) {
	if limit <= 0 {
		limit = 500
	}

	const q = `
		SELECT l.hash,
		       l.click_count, l.unique_click_count, l.conversion_count, l.total_revenue,
		       COALESCE(c.clicks, 0), COALESCE(c.uniques, 0),
		       COALESCE(v.conversions, 0), COALESCE(v.revenue, 0)
		FROM affiliate_links l
		LEFT JOIN (
			SELECT link_hash, COUNT(*) AS clicks,
			       COUNT(*) FILTER (WHERE is_unique) AS uniques
			FROM clicks GROUP BY link_hash
		) c ON c.link_hash = l.hash
		LEFT JOIN (
			SELECT link_hash, COUNT(*) AS conversions,
			       COALESCE(SUM(payout_amount), 0) AS revenue
			FROM conversions GROUP BY link_hash
		) v ON v.link_hash = l.hash
		ORDER BY l.updated_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("link tallies: %w", err)
	}
	defer rows.Close()

	var tallies []LinkTally
	for rows.Next() {
		var t LinkTally
		if err := rows.Scan(
			&t.Hash,
			&t.StoredClicks, &t.StoredUniqueClicks, &t.StoredConversions, &t.StoredRevenue,
			&t.ActualClicks, &t.ActualUniqueClicks, &t.ActualConversions, &t.ActualRevenue,
		); err != nil {
			return nil, fmt.Errorf("link tallies: scan: %w", err)
		}
		tallies = append(tallies, t)
	}
	return tallies, rows.Err()
}
