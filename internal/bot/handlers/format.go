package handlers

import (
	"fmt"
	"strings"

	"github.com/edgard/foodlens/internal/nutrition"
)

// FormatSummary renders a record as the chat reply for a finished analysis.
func FormatSummary(r *nutrition.Record) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🍽️ %s\n\n", r.FoodName)
	fmt.Fprintf(&sb, "🔥 Calories: %s kcal\n", formatAmount(r.Calories))
	fmt.Fprintf(&sb, "🥩 Protein: %s g\n", formatAmount(r.Protein))
	fmt.Fprintf(&sb, "🍞 Carbs: %s g\n", formatAmount(r.Carbs))
	fmt.Fprintf(&sb, "🍬 Sugar: %s g\n", formatAmount(r.Sugar))
	fmt.Fprintf(&sb, "🧈 Fat: %s g\n", formatAmount(r.Fat))
	fmt.Fprintf(&sb, "🌾 Fiber: %s g", formatAmount(r.Fiber))
	if r.HealthScore != nil {
		fmt.Fprintf(&sb, "\n💚 Health score: %d/100", *r.HealthScore)
	}
	if notes := strings.TrimSpace(r.Notes); notes != "" {
		fmt.Fprintf(&sb, "\n\n📝 %s", notes)
	}
	return sb.String()
}

// FormatHistory renders one line per record, newest first.
func FormatHistory(records []*nutrition.Record) string {
	var sb strings.Builder
	sb.WriteString("📋 Latest analyses:")
	for _, r := range records {
		fmt.Fprintf(&sb, "\n• %s %s (%s kcal)", r.CreatedAt.Format("2006-01-02 15:04"), r.FoodName, formatAmount(r.Calories))
	}
	return sb.String()
}

// FormatStatistics renders the aggregate for a trailing window.
func FormatStatistics(s *nutrition.Statistics) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 Last %d days: %d meals\n", s.Days, s.TotalMeals)
	fmt.Fprintf(&sb, "🔥 Calories: %s kcal (avg %s)\n", formatAmount(s.TotalCalories), formatAmount(s.AvgCalories))
	fmt.Fprintf(&sb, "🥩 Protein: %s g (avg %s)\n", formatAmount(s.TotalProtein), formatAmount(s.AvgProtein))
	fmt.Fprintf(&sb, "🍞 Carbs: %s g (avg %s)\n", formatAmount(s.TotalCarbs), formatAmount(s.AvgCarbs))
	fmt.Fprintf(&sb, "🍬 Sugar: %s g (avg %s)\n", formatAmount(s.TotalSugar), formatAmount(s.AvgSugar))
	fmt.Fprintf(&sb, "🧈 Fat: %s g (avg %s)\n", formatAmount(s.TotalFat), formatAmount(s.AvgFat))
	fmt.Fprintf(&sb, "🌾 Fiber: %s g (avg %s)", formatAmount(s.TotalFiber), formatAmount(s.AvgFiber))
	if s.AvgHealthScore > 0 {
		fmt.Fprintf(&sb, "\n💚 Avg health score: %s", formatAmount(s.AvgHealthScore))
	}
	return sb.String()
}

// formatAmount drops a trailing ".0" so whole numbers read naturally.
func formatAmount(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0")
}
