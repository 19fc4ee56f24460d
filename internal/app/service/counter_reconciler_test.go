package service

import (
	"context"
	"testing"

	"github.com/afftrack/afftrack/internal/app/model"
	"github.com/afftrack/afftrack/internal/app/repository"
)

func TestCounterReconciler_RepairsDrift(t *testing.T) {
	repaired := map[string]model.CounterDelta{}
	links := &mockLinkRepository{
		incrementFn: func(ctx context.Context, hash string, delta model.CounterDelta) error {
			repaired[hash] = delta
			return nil
		},
	}
	stats := &mockStatsRepository{
		talliesFn: func(ctx context.Context, limit int) ([]repository.LinkTally, error) {
			return []repository.LinkTally{
				{
					Hash:         "intact01",
					StoredClicks: 10, ActualClicks: 10,
					StoredUniqueClicks: 8, ActualUniqueClicks: 8,
				},
				{
					Hash:         "drifted1",
					StoredClicks: 10, ActualClicks: 12,
					StoredUniqueClicks: 8, ActualUniqueClicks: 9,
					StoredConversions: 1, ActualConversions: 2,
					StoredRevenue: 5, ActualRevenue: 15,
				},
			}, nil
		},
	}

	r := NewCounterReconciler(nil, links, stats, 0)
	r.reconcile()

	if _, ok := repaired["intact01"]; ok {
		t.Fatal("intact counters must not be touched")
	}
	got, ok := repaired["drifted1"]
	if !ok {
		t.Fatal("expected drifted link to be repaired")
	}
	want := model.CounterDelta{Clicks: 2, UniqueClicks: 1, Conversions: 1, Revenue: 10}
	if got != want {
		t.Fatalf("repair delta = %+v, want %+v", got, want)
	}
}

func TestCounterReconciler_ConcurrentClickSurvivesRepair(t *testing.T) {
	// One click row was written but its increment was lost: stored 10, rows 11.
	// A second click lands after the tally snapshot, moving stored to 11 and
	// rows to 12. The repair must land on 12, never below the pre-repair value.
	stored := int64(10)
	links := &mockLinkRepository{
		incrementFn: func(ctx context.Context, hash string, delta model.CounterDelta) error {
			stored += delta.Clicks
			return nil
		},
	}
	stats := &mockStatsRepository{
		talliesFn: func(ctx context.Context, limit int) ([]repository.LinkTally, error) {
			tally := repository.LinkTally{
				Hash:         "hotlink1",
				StoredClicks: stored,
				ActualClicks: stored + 1,
			}
			stored++
			return []repository.LinkTally{tally}, nil
		},
	}

	r := NewCounterReconciler(nil, links, stats, 0)
	r.reconcile()

	if stored != 12 {
		t.Fatalf("click_count = %d after repair, want 12; concurrent click was erased", stored)
	}
}

func TestLinkTally_Drifted(t *testing.T) {
	intact := repository.LinkTally{StoredClicks: 5, ActualClicks: 5}
	if intact.Drifted() {
		t.Fatal("matching tallies must not report drift")
	}

	off := repository.LinkTally{StoredRevenue: 10, ActualRevenue: 12.5}
	if !off.Drifted() {
		t.Fatal("revenue mismatch must report drift")
	}
}
