// Package nutrition holds the domain types produced by an analysis: the facts
// extracted from a photo, the persisted record and aggregate statistics.
package nutrition

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	errs "github.com/edgard/foodlens/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Facts is the structured nutrition estimate for one photo.
// Every numeric fact must be present and strictly positive.
type Facts struct {
	FoodName    string  `json:"foodName"              validate:"required"`
	Calories    float64 `json:"calories"              validate:"gt=0"`
	Sugar       float64 `json:"sugar"                 validate:"gt=0"`
	Protein     float64 `json:"protein"               validate:"gt=0"`
	Carbs       float64 `json:"carbs"                 validate:"gt=0"`
	Fat         float64 `json:"fat"                   validate:"gt=0"`
	Fiber       float64 `json:"fiber"                 validate:"gt=0"`
	HealthScore *int    `json:"healthScore,omitempty" validate:"omitempty,min=1,max=100"`
	Notes       string  `json:"notes"`
}

// Validate reports a ValidationError naming every field that breaks its rule.
func (f *Facts) Validate() error {
	if f == nil {
		return errs.NewValidationError("nutrition facts are missing", nil)
	}
	f.FoodName = strings.TrimSpace(f.FoodName)

	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errs.NewValidationError("invalid nutrition facts", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, describeFieldError(fe))
	}
	return errs.NewValidationError("invalid nutrition facts: "+strings.Join(fields, ", "), err)
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "min", "max":
		return fmt.Sprintf("%s must be between 1 and 100", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

// Record is one completed analysis as stored in the repository.
type Record struct {
	ID        string    `json:"id"`
	ImageURL  string    `json:"imageUrl"`
	ImagePath string    `json:"-"`
	Facts               // promoted so the JSON body stays flat
	CreatedAt time.Time `json:"createdAt"`
}

// NewRecord validates facts and binds them to a stored image.
// ID and CreatedAt are assigned by the repository on save.
func NewRecord(facts Facts, imageURL, imagePath string) (*Record, error) {
	if err := facts.Validate(); err != nil {
		return nil, err
	}
	if imageURL == "" {
		return nil, errs.NewValidationError("image url is required", nil)
	}
	return &Record{
		ImageURL:  imageURL,
		ImagePath: imagePath,
		Facts:     facts,
	}, nil
}

// Statistics aggregates the records created inside a trailing window.
// An empty window yields all zero values.
type Statistics struct {
	Days           int     `json:"days"`
	TotalMeals     int64   `json:"totalMeals"`
	TotalCalories  float64 `json:"totalCalories"`
	TotalSugar     float64 `json:"totalSugar"`
	TotalProtein   float64 `json:"totalProtein"`
	TotalCarbs     float64 `json:"totalCarbs"`
	TotalFat       float64 `json:"totalFat"`
	TotalFiber     float64 `json:"totalFiber"`
	AvgCalories    float64 `json:"avgCalories"`
	AvgSugar       float64 `json:"avgSugar"`
	AvgProtein     float64 `json:"avgProtein"`
	AvgCarbs       float64 `json:"avgCarbs"`
	AvgFat         float64 `json:"avgFat"`
	AvgFiber       float64 `json:"avgFiber"`
	AvgHealthScore float64 `json:"avgHealthScore"`
}
