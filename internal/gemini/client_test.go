package gemini

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/edgard/foodlens/internal/config"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
)

type fakeGenerator struct {
	resp     *genai.GenerateContentResponse
	err      error
	calls    int
	model    string
	contents []*genai.Content
	cfg      *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.contents = contents
	f.cfg = cfg
	return f.resp, f.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content:      genai.NewContentFromText(text, genai.RoleModel),
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func newTestClient(gen contentGenerator) *sdkClient {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newSDKClient(gen, config.GeminiConfig{ModelName: "gemini-test", Temperature: 0.2}, log)
}

var testImage = imaging.Image{Data: []byte{0xff, 0xd8, 0xff}, ContentType: imaging.ContentType}

func TestExtractNutritionSuccess(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: textResponse(`{"success":{"food_name":"Pizza","calories":800,"sugar":9,"protein":30,"carbs":90,"fat":35,"fiber":5,"health_score":35,"notes":"Two slices"}}`)}
	c := newTestClient(gen)

	facts, err := c.ExtractNutrition(context.Background(), testImage)
	require.NoError(t, err)
	assert.Equal(t, "Pizza", facts.FoodName)
	assert.InDelta(t, 800, facts.Calories, 0.001)
	require.NotNil(t, facts.HealthScore)
	assert.Equal(t, 35, *facts.HealthScore)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "gemini-test", gen.model)
	assert.Equal(t, "application/json", gen.cfg.ResponseMIMEType)
	require.Len(t, gen.contents, 1)
	require.Len(t, gen.contents[0].Parts, 2)
	require.NotNil(t, gen.contents[0].Parts[1].InlineData)
	assert.Equal(t, imaging.ContentType, gen.contents[0].Parts[1].InlineData.MIMEType)
}

func TestExtractNutritionFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		gen      *fakeGenerator
		wantCode string
	}{
		{
			name:     "transport error",
			gen:      &fakeGenerator{err: errors.New("connection reset")},
			wantCode: errs.CodeAnalysis,
		},
		{
			name: "blocked",
			gen: &fakeGenerator{resp: &genai.GenerateContentResponse{
				PromptFeedback: &genai.GenerateContentResponsePromptFeedback{BlockReason: genai.BlockedReasonSafety},
			}},
			wantCode: errs.CodeAnalysis,
		},
		{
			name:     "no candidates",
			gen:      &fakeGenerator{resp: &genai.GenerateContentResponse{}},
			wantCode: errs.CodeAnalysis,
		},
		{
			name:     "tagged error",
			gen:      &fakeGenerator{resp: textResponse(`{"error":{"error_reason":"not food","suggestion":"take a photo of a meal"}}`)},
			wantCode: errs.CodeAnalysis,
		},
		{
			name:     "zero calories",
			gen:      &fakeGenerator{resp: textResponse(`{"success":{"food_name":"Water","calories":0,"sugar":1,"protein":1,"carbs":1,"fat":1,"fiber":1,"notes":""}}`)},
			wantCode: errs.CodeValidation,
		},
		{
			name:     "negative sugar",
			gen:      &fakeGenerator{resp: textResponse(`{"success":{"food_name":"Soup","calories":200,"sugar":-1,"protein":1,"carbs":1,"fat":1,"fiber":1,"notes":""}}`)},
			wantCode: errs.CodeValidation,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := newTestClient(tc.gen).ExtractNutrition(context.Background(), testImage)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, errs.Code(err))
			assert.Equal(t, 1, tc.gen.calls, "vision call must not be retried")
		})
	}
}

func TestExtractNutritionRejectsEmptyImage(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	_, err := newTestClient(gen).ExtractNutrition(context.Background(), imaging.Image{})
	assert.True(t, errs.IsValidation(err))
	assert.Zero(t, gen.calls)
}
