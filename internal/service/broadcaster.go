package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/domain"
)

// Publisher fans a snapshot out to every open connection. Delivery is
// best-effort; unreachable clients are the transport's concern.
type Publisher interface {
	BroadcastAll(snap domain.Snapshot)
}

// Broadcaster pushes a fresh dashboard snapshot to all clients on a fixed
// period. It never diffs against the previous snapshot; deduplication belongs
// to the receiving client.
type Broadcaster struct {
	ledger    *Ledger
	publisher Publisher
	interval  time.Duration
	limit     int
}

func NewBroadcaster(ledger *Ledger, publisher Publisher, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = time.Second
	}
	return &Broadcaster{
		ledger:    ledger,
		publisher: publisher,
		interval:  interval,
		limit:     DefaultRankingLimit,
	}
}

// Run ticks until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	slog.Info("broadcaster started", "interval", b.interval.String())

	for {
		select {
		case <-ticker.C:
			b.Tick()
		case <-ctx.Done():
			slog.Info("broadcaster stopped")
			return
		}
	}
}

// Tick reads the ledger and publishes one snapshot.
func (b *Broadcaster) Tick() {
	b.publisher.BroadcastAll(b.ledger.Snapshot(b.limit))
}
