// Package gemini implements nutrition extraction from food photos with
// Google's Gemini models.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/foodlens/internal/config"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
	"github.com/edgard/foodlens/internal/nutrition"
)

// Client extracts structured nutrition facts from a normalized image.
// Model failures, blocked requests, unparseable answers and tagged error
// results are AnalysisErrors; answers with missing, zero or negative facts are
// ValidationErrors.
type Client interface {
	ExtractNutrition(ctx context.Context, img imaging.Image) (*nutrition.Facts, error)
}

// contentGenerator is the subset of *genai.Models used by the client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models        contentGenerator
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
}

var nutritionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"food_name":    {Type: genai.TypeString, Description: "Short name of the meal."},
		"calories":     {Type: genai.TypeNumber, Description: "Total energy in kcal."},
		"sugar":        {Type: genai.TypeNumber, Description: "Total sugar in grams."},
		"protein":      {Type: genai.TypeNumber, Description: "Total protein in grams."},
		"carbs":        {Type: genai.TypeNumber, Description: "Total carbohydrates in grams."},
		"fat":          {Type: genai.TypeNumber, Description: "Total fat in grams."},
		"fiber":        {Type: genai.TypeNumber, Description: "Total fiber in grams."},
		"health_score": {Type: genai.TypeInteger, Description: "Healthiness from 1 to 100."},
		"notes":        {Type: genai.TypeString, Description: "Assumptions and remarks about the meal."},
	},
	Required: []string{"food_name", "calories", "sugar", "protein", "carbs", "fat", "fiber", "health_score", "notes"},
}

var failureSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"error_reason": {Type: genai.TypeString, Description: "Why the image could not be analyzed."},
		"suggestion":   {Type: genai.TypeString, Description: "How to take a better photo."},
	},
	Required: []string{"error_reason"},
}

// resultSchema is a tagged union: exactly one of success or error is set.
var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"success": nutritionSchema,
		"error":   failureSchema,
	},
}

// NewClient creates a Gemini client for the configured backend
// (Gemini API key or Vertex AI project).
func NewClient(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (Client, error) {
	clientCfg := &genai.ClientConfig{}
	switch cfg.Backend {
	case "vertex":
		clientCfg.Backend = genai.BackendVertexAI
		clientCfg.Project = cfg.Project
		clientCfg.Location = cfg.Location
	default:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini API key is required")
		}
		clientCfg.Backend = genai.BackendGeminiAPI
		clientCfg.APIKey = cfg.APIKey
	}

	gi, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logger := log.With("component", "gemini_client")
	logger.Info("Gemini client initialized successfully", "model", cfg.ModelName, "backend", cfg.Backend)
	return newSDKClient(gi.Models, cfg, logger), nil
}

func newSDKClient(models contentGenerator, cfg config.GeminiConfig, log *slog.Logger) *sdkClient {
	temperature := cfg.Temperature
	return &sdkClient{
		models: models,
		log:    log,
		contentConfig: &genai.GenerateContentConfig{
			Temperature:       &temperature,
			SystemInstruction: genai.NewContentFromText(NutritionSystemInstruction, genai.RoleUser),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    resultSchema,
		},
		modelName: cfg.ModelName,
	}
}

// ExtractNutrition sends the image to the model once; failures are not retried.
func (c *sdkClient) ExtractNutrition(ctx context.Context, img imaging.Image) (*nutrition.Facts, error) {
	if len(img.Data) == 0 || img.ContentType == "" {
		return nil, errs.NewValidationError("image data and content type are required for analysis", nil)
	}

	c.log.DebugContext(ctx, "Extracting nutrition", "image_size", len(img.Data), "mime_type", img.ContentType)
	startTime := time.Now()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analyzePrompt),
			genai.NewPartFromBytes(img.Data, img.ContentType),
		}, genai.RoleUser),
	}

	resp, err := c.models.GenerateContent(ctx, c.modelName, contents, c.contentConfig)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini nutrition extraction call failed", "error", err)
		return nil, errs.NewAnalysisError("vision model request failed", err)
	}

	text, err := c.extractTextFromResponse(ctx, resp)
	if err != nil {
		return nil, err
	}

	facts, err := ParseResult(text)
	if err != nil {
		c.log.WarnContext(ctx, "Gemini returned an unusable nutrition result", "error", err, "response_text", text)
		return nil, err
	}

	c.log.InfoContext(ctx, "Nutrition extracted",
		"food_name", facts.FoodName, "calories", facts.Calories, "duration", time.Since(startTime))
	return facts, nil
}

func (c *sdkClient) extractTextFromResponse(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errs.NewAnalysisError("vision model returned no response", nil)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reasonMsg := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reasonMsg = resp.PromptFeedback.BlockReasonMessage
		}
		c.log.ErrorContext(ctx, "Gemini request blocked", "reason", reasonMsg)
		return "", errs.NewAnalysisError("vision model blocked the request: "+reasonMsg, nil)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		c.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", errs.NewAnalysisError("vision model returned no content, finish reason: "+finishReason, nil)
	}

	return resp.Text(), nil
}
