package tasks

import (
	"context"
	"fmt"
	"time"
)

// newDailySummaryTask logs the aggregate of the analyses recorded in the
// last 24 hours.
func newDailySummaryTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_summary")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled daily summary task...")
		startTime := time.Now()

		stats, err := deps.Store.GetStatistics(ctx, time.Now().UTC().Add(-24*time.Hour))
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Daily summary task failed", "error", err, "duration", duration)
			return fmt.Errorf("daily summary failed: %w", err)
		}

		log.InfoContext(ctx, "Daily summary",
			"meals", stats.TotalMeals,
			"total_calories", stats.TotalCalories,
			"avg_calories", stats.AvgCalories,
			"avg_protein", stats.AvgProtein,
			"avg_carbs", stats.AvgCarbs,
			"avg_fat", stats.AvgFat,
			"avg_health_score", stats.AvgHealthScore,
			"duration", duration)
		return nil
	}
}
