// Package analysis orchestrates the food photo pipeline shared by every entry
// point: normalize, extract nutrition, upload the image and persist the record.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/foodlens/internal/cache"
	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/imaging"
	"github.com/edgard/foodlens/internal/nutrition"
	"github.com/edgard/foodlens/internal/resilience"
	"github.com/edgard/foodlens/internal/storage"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
	DefaultStatsDays    = 7
	MaxStatsDays        = 3650
)

// Extractor turns a normalized image into nutrition facts.
type Extractor interface {
	ExtractNutrition(ctx context.Context, img imaging.Image) (*nutrition.Facts, error)
}

// ArtifactStore keeps normalized images.
type ArtifactStore interface {
	Upload(ctx context.Context, data []byte, contentType, filename string) (storage.Object, error)
	Delete(ctx context.Context, objectPath string) error
}

// Repository persists analysis records.
type Repository interface {
	SaveAnalysis(ctx context.Context, record *nutrition.Record) error
	GetAnalysis(ctx context.Context, id string) (*nutrition.Record, error)
	ListAnalyses(ctx context.Context, limit, offset int) ([]*nutrition.Record, error)
	CountAnalyses(ctx context.Context) (int64, error)
	DeleteAnalysis(ctx context.Context, id string) error
	GetStatistics(ctx context.Context, since time.Time) (*nutrition.Statistics, error)
}

// Notifier is told about every newly persisted record.
type Notifier interface {
	Publish(record *nutrition.Record)
}

// ServiceDeps provides dependencies for the analysis service.
// Cache and Notifier are optional.
type ServiceDeps struct {
	Logger    *slog.Logger
	Extractor Extractor
	Store     ArtifactStore
	Repo      Repository
	Cache     cache.Cache
	Notifier  Notifier
}

// Options tunes the pipeline.
type Options struct {
	Image    imaging.Options
	Retry    resilience.Policy
	CacheTTL time.Duration
}

// Service runs analyses and serves the stored results.
type Service struct {
	deps ServiceDeps
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func NewService(deps ServiceDeps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		deps: deps,
		opts: opts,
		log:  deps.Logger.With("component", "analysis_service"),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// AnalyzeAndStore runs the full pipeline on raw image bytes. Stages run in
// order and the first failure aborts the rest; an image uploaded before a
// failed save is left in the store.
func (s *Service) AnalyzeAndStore(ctx context.Context, raw []byte, filename string) (*nutrition.Record, error) {
	startTime := time.Now()
	log := s.log.With("filename", filename, "raw_size", len(raw))

	img, err := imaging.Normalize(raw, s.opts.Image)
	if err != nil {
		log.WarnContext(ctx, "Image rejected", "error", err)
		return nil, err
	}

	facts, err := s.deps.Extractor.ExtractNutrition(ctx, img)
	if err != nil {
		log.WarnContext(ctx, "Nutrition extraction failed", "error", err)
		if !errs.Classified(err) {
			err = errs.NewAnalysisError("nutrition extraction failed", err)
		}
		return nil, err
	}
	if err := facts.Validate(); err != nil {
		log.WarnContext(ctx, "Extracted nutrition is invalid", "error", err)
		return nil, err
	}

	obj, err := resilience.Retry(ctx, log, "upload_image", s.opts.Retry, func(ctx context.Context) (storage.Object, error) {
		return s.deps.Store.Upload(ctx, img.Data, img.ContentType, filename)
	})
	if err != nil {
		log.ErrorContext(ctx, "Image upload failed", "error", err)
		if !errs.IsStorage(err) {
			err = errs.NewStorageError("image upload failed", err)
		}
		return nil, err
	}

	record, err := nutrition.NewRecord(*facts, obj.URL, obj.Path)
	if err != nil {
		return nil, err
	}

	_, err = resilience.Retry(ctx, log, "save_analysis", s.opts.Retry, func(ctx context.Context) (struct{}, error) {
		if err := s.deps.Repo.SaveAnalysis(ctx, record); err != nil {
			if errs.IsValidation(err) {
				return struct{}{}, resilience.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		log.ErrorContext(ctx, "Saving analysis failed", "image_path", obj.Path, "error", err)
		if !errs.IsPersistence(err) && !errs.IsValidation(err) {
			err = errs.NewPersistenceError("saving analysis failed", err)
		}
		return nil, err
	}

	s.remember(ctx, record)
	if s.deps.Notifier != nil {
		s.deps.Notifier.Publish(record)
	}

	log.InfoContext(ctx, "Analysis completed",
		"analysis_id", record.ID,
		"food_name", record.FoodName,
		"calories", record.Calories,
		"source_format", img.SourceFormat,
		"duration", time.Since(startTime))
	return record, nil
}

// Get returns one record, consulting the cache first.
func (s *Service) Get(ctx context.Context, id string) (*nutrition.Record, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	if raw, err := s.deps.Cache.Get(ctx, cacheKey(id)); err == nil {
		var record nutrition.Record
		if err := json.Unmarshal(raw, &record); err == nil {
			return &record, nil
		}
		s.log.WarnContext(ctx, "Discarding undecodable cache entry", "analysis_id", id)
	}

	record, err := s.deps.Repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, record)
	return record, nil
}

// HistoryPage is one page of records, newest first.
type HistoryPage struct {
	Total  int64               `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Data   []*nutrition.Record `json:"data"`
}

func (s *Service) History(ctx context.Context, limit, offset int) (*HistoryPage, error) {
	if limit < 1 || limit > MaxHistoryLimit {
		return nil, errs.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxHistoryLimit), nil)
	}
	if offset < 0 {
		return nil, errs.NewValidationError("offset must not be negative", nil)
	}

	records, err := s.deps.Repo.ListAnalyses(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.deps.Repo.CountAnalyses(ctx)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{Total: total, Limit: limit, Offset: offset, Data: records}, nil
}

// Delete removes a record and, best effort, its stored image.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	record, err := s.deps.Repo.GetAnalysis(ctx, id)
	if err != nil {
		return err
	}
	if err := s.deps.Repo.DeleteAnalysis(ctx, id); err != nil {
		return err
	}

	if err := s.deps.Cache.Delete(ctx, cacheKey(id)); err != nil {
		s.log.WarnContext(ctx, "Failed to evict cached analysis", "analysis_id", id, "error", err)
	}
	if record.ImagePath != "" {
		if err := s.deps.Store.Delete(ctx, record.ImagePath); err != nil {
			s.log.WarnContext(ctx, "Failed to delete stored image", "analysis_id", id, "image_path", record.ImagePath, "error", err)
		}
	}

	s.log.InfoContext(ctx, "Analysis deleted", "analysis_id", id)
	return nil
}

// Statistics aggregates the trailing days-long window ending now.
func (s *Service) Statistics(ctx context.Context, days int) (*nutrition.Statistics, error) {
	if days < 1 || days > MaxStatsDays {
		return nil, errs.NewValidationError(fmt.Sprintf("days must be between 1 and %d", MaxStatsDays), nil)
	}

	stats, err := s.deps.Repo.GetStatistics(ctx, s.now().AddDate(0, 0, -days))
	if err != nil {
		return nil, err
	}
	stats.Days = days
	return stats, nil
}

func (s *Service) remember(ctx context.Context, record *nutrition.Record) {
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.deps.Cache.Set(ctx, cacheKey(record.ID), raw, s.opts.CacheTTL); err != nil {
		s.log.WarnContext(ctx, "Failed to cache analysis", "analysis_id", record.ID, "error", err)
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errs.NewValidationError("invalid analysis id", err)
	}
	return nil
}

func cacheKey(id string) string {
	return "analysis:" + id
}
