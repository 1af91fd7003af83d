package database

import (
	"database/sql"
	"time"

	"github.com/edgard/foodlens/internal/nutrition"
)

// analysisRow is one row of the analysis table.
type analysisRow struct {
	ID          string        `db:"id"`
	ImageURL    string        `db:"image_url"`
	ImagePath   string        `db:"image_path"`
	FoodName    string        `db:"food_name"`
	Calories    float64       `db:"calories"`
	Sugar       float64       `db:"sugar"`
	Protein     float64       `db:"protein"`
	Carbs       float64       `db:"carbs"`
	Fat         float64       `db:"fat"`
	Fiber       float64       `db:"fiber"`
	HealthScore sql.NullInt64 `db:"health_score"`
	Notes       string        `db:"notes"`
	CreatedAt   time.Time     `db:"created_at"`
}

func rowFromRecord(r *nutrition.Record) analysisRow {
	row := analysisRow{
		ID:        r.ID,
		ImageURL:  r.ImageURL,
		ImagePath: r.ImagePath,
		FoodName:  r.FoodName,
		Calories:  r.Calories,
		Sugar:     r.Sugar,
		Protein:   r.Protein,
		Carbs:     r.Carbs,
		Fat:       r.Fat,
		Fiber:     r.Fiber,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
	if r.HealthScore != nil {
		row.HealthScore = sql.NullInt64{Int64: int64(*r.HealthScore), Valid: true}
	}
	return row
}

func (row analysisRow) record() *nutrition.Record {
	r := &nutrition.Record{
		ID:        row.ID,
		ImageURL:  row.ImageURL,
		ImagePath: row.ImagePath,
		Facts: nutrition.Facts{
			FoodName: row.FoodName,
			Calories: row.Calories,
			Sugar:    row.Sugar,
			Protein:  row.Protein,
			Carbs:    row.Carbs,
			Fat:      row.Fat,
			Fiber:    row.Fiber,
			Notes:    row.Notes,
		},
		CreatedAt: row.CreatedAt.UTC(),
	}
	if row.HealthScore.Valid {
		score := int(row.HealthScore.Int64)
		r.HealthScore = &score
	}
	return r
}

// statisticsRow holds the aggregate columns of the statistics query.
type statisticsRow struct {
	TotalMeals     int64   `db:"total_meals"`
	TotalCalories  float64 `db:"total_calories"`
	TotalSugar     float64 `db:"total_sugar"`
	TotalProtein   float64 `db:"total_protein"`
	TotalCarbs     float64 `db:"total_carbs"`
	TotalFat       float64 `db:"total_fat"`
	TotalFiber     float64 `db:"total_fiber"`
	AvgCalories    float64 `db:"avg_calories"`
	AvgSugar       float64 `db:"avg_sugar"`
	AvgProtein     float64 `db:"avg_protein"`
	AvgCarbs       float64 `db:"avg_carbs"`
	AvgFat         float64 `db:"avg_fat"`
	AvgFiber       float64 `db:"avg_fiber"`
	AvgHealthScore float64 `db:"avg_health_score"`
}
