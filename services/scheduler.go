// services/scheduler.go
package services

import (
	"log"
	"strconv"
	"strings"

	"github.com/go-co-op/gocron/v2"
)

// StartScheduler runs the recurring jobs: snapshot publishing on an
// interval, the reviewer packet once a day at the configured local time.
func StartScheduler(cfg *Config, publish *PublishService, preprocess *PreprocessService) {
	sched, _ := gocron.NewScheduler(gocron.WithLocation(cfg.Location))
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(cfg.PublishInterval),
		gocron.NewTask(func() {
			if _, _, err := publish.Publish(); err != nil {
				log.Printf("[Scheduler] publish failed: %v", err)
			}
		}),
	)

	hour, minute := parseClock(cfg.PreprocessAt)
	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(hour, minute, 0))),
		gocron.NewTask(func() {
			path, err := preprocess.Run()
			if err != nil {
				log.Printf("[Scheduler] preprocess failed: %v", err)
				return
			}
			log.Printf("✅ Reviewer packet saved: %s", path)
		}),
	)
}

// parseClock reads "HH:MM", falling back to 01:00.
func parseClock(value string) (uint, uint) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 1, 0
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 1, 0
	}
	return uint(hour), uint(minute)
}
