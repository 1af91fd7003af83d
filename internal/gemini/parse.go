package gemini

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/nutrition"
	"github.com/edgard/foodlens/internal/sanitize"
)

var jsonObjectRe = regexp.MustCompile(`\{[\s\S]*\}`)

type nutritionPayload struct {
	FoodName    *string  `json:"food_name"`
	Calories    *float64 `json:"calories"`
	Sugar       *float64 `json:"sugar"`
	Protein     *float64 `json:"protein"`
	Carbs       *float64 `json:"carbs"`
	Fat         *float64 `json:"fat"`
	Fiber       *float64 `json:"fiber"`
	HealthScore *float64 `json:"health_score"`
	Notes       string   `json:"notes"`
}

type failurePayload struct {
	ErrorReason string `json:"error_reason"`
	Suggestion  string `json:"suggestion"`
}

// modelResult accepts the tagged form and, through the embedded payload,
// a bare nutrition object.
type modelResult struct {
	Success *nutritionPayload `json:"success"`
	Error   *failurePayload   `json:"error"`
	nutritionPayload
}

// ParseResult turns the model's text answer into validated facts.
// Markdown code fences and text around the JSON object are tolerated.
func ParseResult(text string) (*nutrition.Facts, error) {
	cleaned := stripFences(text)
	if cleaned == "" {
		return nil, errs.NewAnalysisError("vision model returned an empty response", nil)
	}

	var result modelResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		match := jsonObjectRe.FindString(cleaned)
		if match == "" {
			return nil, errs.NewAnalysisError("vision model returned malformed output", err)
		}
		result = modelResult{}
		if err := json.Unmarshal([]byte(match), &result); err != nil {
			return nil, errs.NewAnalysisError("vision model returned malformed output", err)
		}
	}

	payload := result.Success
	if payload == nil {
		if result.Error != nil {
			msg := "vision model could not analyze the image"
			if result.Error.ErrorReason != "" {
				msg += ": " + result.Error.ErrorReason
			}
			return nil, errs.NewAnalysisError(msg, nil)
		}
		payload = &result.nutritionPayload
	}

	return payload.facts()
}

func (p *nutritionPayload) facts() (*nutrition.Facts, error) {
	var missing []string
	num := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)
			return 0
		}
		return *v
	}

	facts := &nutrition.Facts{
		Calories: num("calories", p.Calories),
		Sugar:    num("sugar", p.Sugar),
		Protein:  num("protein", p.Protein),
		Carbs:    num("carbs", p.Carbs),
		Fat:      num("fat", p.Fat),
		Fiber:    num("fiber", p.Fiber),
		Notes:    sanitize.Text(p.Notes),
	}
	if p.FoodName == nil {
		missing = append(missing, "food_name")
	} else {
		facts.FoodName = sanitize.Line(*p.FoodName)
	}
	if len(missing) > 0 {
		return nil, errs.NewValidationError("nutrition result is missing "+strings.Join(missing, ", "), nil)
	}

	if p.HealthScore != nil {
		score := int(math.Round(*p.HealthScore))
		facts.HealthScore = &score
	}

	if err := facts.Validate(); err != nil {
		return nil, err
	}
	return facts, nil
}

func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}

	cleaned = strings.Trim(cleaned, "`")
	if i := strings.IndexByte(cleaned, '\n'); i >= 0 {
		// Drop the language tag line, e.g. "json".
		head := strings.TrimSpace(cleaned[:i])
		if head == "" || !strings.HasPrefix(head, "{") {
			cleaned = cleaned[i+1:]
		}
	}
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cleaned), "json"))
}
