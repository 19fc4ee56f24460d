package service

import (
	"context"
	"fmt"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
)

// ConversionRate returns conversions per click as a percentage.
func ConversionRate(conversions, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return float64(conversions) / float64(clicks) * 100
}

// EarningsPerClick returns revenue divided by clicks.
func EarningsPerClick(revenue float64, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return revenue / float64(clicks)
}

// UniqueClickRate returns unique clicks per click as a percentage.
func UniqueClickRate(uniqueClicks, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return float64(uniqueClicks) / float64(clicks) * 100
}

// LinkStats is the derived view of one link's counters.
type LinkStats struct {
	Hash             string  `json:"hash"`
	Clicks           int64   `json:"clicks"`
	UniqueClicks     int64   `json:"unique_clicks"`
	Conversions      int64   `json:"conversions"`
	Revenue          float64 `json:"revenue"`
	ConversionRate   float64 `json:"conversion_rate"`
	EarningsPerClick float64 `json:"earnings_per_click"`
	UniqueClickRate  float64 `json:"unique_click_rate"`
}

// StatsForLink derives the ratio view from a link's raw counters.
func StatsForLink(link *model.AffiliateLink) LinkStats {
	return LinkStats{
		Hash:             link.Hash,
		Clicks:           link.ClickCount,
		UniqueClicks:     link.UniqueClickCount,
		Conversions:      link.ConversionCount,
		Revenue:          link.TotalRevenue,
		ConversionRate:   ConversionRate(link.ConversionCount, link.ClickCount),
		EarningsPerClick: EarningsPerClick(link.TotalRevenue, link.ClickCount),
		UniqueClickRate:  UniqueClickRate(link.UniqueClickCount, link.ClickCount),
	}
}

// OwnerStats is the per-user aggregate view across all links.
type OwnerStats struct {
	Links            int64   `json:"links"`
	Clicks           int64   `json:"clicks"`
	UniqueClicks     int64   `json:"unique_clicks"`
	Conversions      int64   `json:"conversions"`
	Revenue          float64 `json:"revenue"`
	ConversionRate   float64 `json:"conversion_rate"`
	EarningsPerClick float64 `json:"earnings_per_click"`
	UniqueClickRate  float64 `json:"unique_click_rate"`
}

// StatsService answers the aggregate read APIs.
type StatsService interface {
	OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error)
}

type statsService struct {
	stats repository.StatsRepository
}

// NewStatsService returns a StatsService over the aggregate repository.
func NewStatsService(stats repository.StatsRepository) StatsService {
	return &statsService{stats: stats}
}

func (s *statsService) OwnerStats(ctx context.Context, ownerID string) (*OwnerStats, error) {
	totals, err := s.stats.OwnerTotals(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("owner stats: %w", err)
	}
	return &OwnerStats{
		Links:            totals.Links,
		Clicks:           totals.Clicks,
		UniqueClicks:     totals.UniqueClicks,
		Conversions:      totals.Conversions,
		Revenue:          totals.Revenue,
		ConversionRate:   ConversionRate(totals.Conversions, totals.Clicks),
		EarningsPerClick: EarningsPerClick(totals.Revenue, totals.Clicks),
		UniqueClickRate:  UniqueClickRate(totals.UniqueClicks, totals.Clicks),
	}, nil
}
