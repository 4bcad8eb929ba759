package workers

import (
	"context"
	"log"
	"time"

	"bingo-submit-system/services"
)

// PollLedger republishes the season snapshot whenever the ledger moves.
// It complements the fixed-interval scheduler job so organizer reviews
// show up on the public page within one poll tick.
func PollLedger(ctx context.Context, publish *services.PublishService, pollInterval time.Duration) {
	log.Println("Starting ledger polling for snapshot publishing...")
	var lastSeen time.Time

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Ledger polling stopped.")
			return
		case <-ticker.C:
			latest, err := publish.LatestChange()
			if err != nil {
				log.Printf("❌ Error checking ledger changes: %v", err)
				continue
			}
			if latest.IsZero() || !latest.After(lastSeen) {
				continue
			}
			if _, _, err := publish.Publish(); err != nil {
				log.Printf("❌ Change-triggered publish failed: %v", err)
				// Do NOT advance lastSeen on failure — retry next tick
				continue
			}
			lastSeen = latest
			log.Printf("✅ Republished snapshot after ledger change at %s", latest.Format(time.RFC3339))
		}
	}
}
