package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	errs "github.com/edgard/foodlens/internal/errors"
	"github.com/edgard/foodlens/internal/nutrition"
)

// Store defines the interface for analysis record persistence.
// Failures are reported as PersistenceError; missing records as NotFoundError.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveAnalysis inserts a record, assigning its ID and CreatedAt when unset.
	SaveAnalysis(ctx context.Context, record *nutrition.Record) error

	GetAnalysis(ctx context.Context, id string) (*nutrition.Record, error)

	// ListAnalyses returns records newest first.
	ListAnalyses(ctx context.Context, limit, offset int) ([]*nutrition.Record, error)

	CountAnalyses(ctx context.Context) (int64, error)

	DeleteAnalysis(ctx context.Context, id string) error

	// GetStatistics aggregates records created at or after since.
	GetStatistics(ctx context.Context, since time.Time) (*nutrition.Statistics, error)

	// RunSQLMaintenance compacts and re-analyzes the analysis table.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	table  string
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store over table. The dialect follows db.DriverName().
func NewStore(db *sqlx.DB, table string, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		table:  table,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const columns = `id, image_url, image_path, food_name, calories, sugar, protein, carbs, fat, fiber, health_score, notes, created_at`

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return errs.NewPersistenceError("database unreachable", err)
	}
	return nil
}

func (s *sqlxStore) SaveAnalysis(ctx context.Context, record *nutrition.Record) error {
	if record == nil {
		return errs.NewValidationError("cannot save nil analysis", nil)
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = s.now()
	}
	// Microseconds are the finest precision every supported column type keeps.
	record.CreatedAt = record.CreatedAt.UTC().Truncate(time.Microsecond)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving analysis", "analysis_id", record.ID, "error", err)
		return errs.NewPersistenceError("failed to begin transaction", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	query := fmt.Sprintf(`
        INSERT INTO %s (%s)
        VALUES (:id, :image_url, :image_path, :food_name, :calories, :sugar, :protein, :carbs, :fat, :fiber, :health_score, :notes, :created_at);
    `, s.table, columns)

	if _, err := tx.NamedExecContext(ctx, query, rowFromRecord(record)); err != nil {
		s.logger.ErrorContext(ctx, "Error saving analysis", "analysis_id", record.ID, "error", err)
		return errs.NewPersistenceError("failed to save analysis", err)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "analysis_id", record.ID, "error", err)
		return errs.NewPersistenceError("failed to commit analysis", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Analysis saved successfully", "analysis_id", record.ID, "food_name", record.FoodName)
	return nil
}

func (s *sqlxStore) GetAnalysis(ctx context.Context, id string) (*nutrition.Record, error) {
	var row analysisRow
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?;`, columns, s.table)
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NewNotFoundError(fmt.Sprintf("analysis %s not found", id))
		}
		s.logger.ErrorContext(ctx, "Error fetching analysis", "analysis_id", id, "error", err)
		return nil, errs.NewPersistenceError("failed to fetch analysis", err)
	}
	return row.record(), nil
}

func (s *sqlxStore) ListAnalyses(ctx context.Context, limit, offset int) ([]*nutrition.Record, error) {
	if limit <= 0 {
		return nil, errs.NewValidationError("limit must be positive", nil)
	}
	if offset < 0 {
		return nil, errs.NewValidationError("offset must not be negative", nil)
	}

	var rows []analysisRow
	query := fmt.Sprintf(`
        SELECT %s
        FROM %s
        ORDER BY created_at DESC, id DESC
        LIMIT ? OFFSET ?;
    `, columns, s.table)
	if err := s.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		s.logger.ErrorContext(ctx, "Error listing analyses", "limit", limit, "offset", offset, "error", err)
		return nil, errs.NewPersistenceError("failed to list analyses", err)
	}

	records := make([]*nutrition.Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (s *sqlxStore) CountAnalyses(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, fmt.Sprintf(`SELECT COUNT(*) FROM %s;`, s.table)); err != nil {
		return 0, errs.NewPersistenceError("failed to count analyses", err)
	}
	return count, nil
}

func (s *sqlxStore) DeleteAnalysis(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?;`, s.table), id)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting analysis", "analysis_id", id, "error", err)
		return errs.NewPersistenceError("failed to delete analysis", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errs.NewPersistenceError("failed to confirm deletion", err)
	}
	if affected == 0 {
		return errs.NewNotFoundError(fmt.Sprintf("analysis %s not found", id))
	}

	s.logger.DebugContext(ctx, "Analysis deleted", "analysis_id", id)
	return nil
}

func (s *sqlxStore) GetStatistics(ctx context.Context, since time.Time) (*nutrition.Statistics, error) {
	query := fmt.Sprintf(`
        SELECT
            COUNT(*)                      AS total_meals,
            COALESCE(SUM(calories), 0)    AS total_calories,
            COALESCE(SUM(sugar), 0)       AS total_sugar,
            COALESCE(SUM(protein), 0)     AS total_protein,
            COALESCE(SUM(carbs), 0)       AS total_carbs,
            COALESCE(SUM(fat), 0)         AS total_fat,
            COALESCE(SUM(fiber), 0)       AS total_fiber,
            COALESCE(AVG(calories), 0)    AS avg_calories,
            COALESCE(AVG(sugar), 0)       AS avg_sugar,
            COALESCE(AVG(protein), 0)     AS avg_protein,
            COALESCE(AVG(carbs), 0)       AS avg_carbs,
            COALESCE(AVG(fat), 0)         AS avg_fat,
            COALESCE(AVG(fiber), 0)       AS avg_fiber,
            COALESCE(AVG(health_score), 0) AS avg_health_score
        FROM %s
        WHERE created_at >= ?;
    `, s.table)

	var row statisticsRow
	if err := s.db.GetContext(ctx, &row, query, since.UTC()); err != nil {
		s.logger.ErrorContext(ctx, "Error aggregating statistics", "since", since, "error", err)
		return nil, errs.NewPersistenceError("failed to compute statistics", err)
	}

	return &nutrition.Statistics{
		TotalMeals:     row.TotalMeals,
		TotalCalories:  row.TotalCalories,
		TotalSugar:     row.TotalSugar,
		TotalProtein:   row.TotalProtein,
		TotalCarbs:     row.TotalCarbs,
		TotalFat:       row.TotalFat,
		TotalFiber:     row.TotalFiber,
		AvgCalories:    row.AvgCalories,
		AvgSugar:       row.AvgSugar,
		AvgProtein:     row.AvgProtein,
		AvgCarbs:       row.AvgCarbs,
		AvgFat:         row.AvgFat,
		AvgFiber:       row.AvgFiber,
		AvgHealthScore: row.AvgHealthScore,
	}, nil
}

// RunSQLMaintenance runs VACUUM and ANALYZE on sqlite, OPTIMIZE TABLE on mysql.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting maintenance", "error", ctx.Err())
		return ctx.Err()
	}

	var statements []string
	switch s.db.DriverName() {
	case DriverMySQL:
		statements = []string{fmt.Sprintf("OPTIMIZE TABLE %s;", s.table)}
	default:
		// VACUUM must run outside a transaction in SQLite.
		statements = []string{"VACUUM;", fmt.Sprintf("ANALYZE %s;", s.table)}
	}

	for _, stmt := range statements {
		s.logger.InfoContext(ctx, "Running database maintenance", "statement", stmt)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.logger.WarnContext(ctx, "Database maintenance timed out or was cancelled", "statement", stmt, "error", err)
				return fmt.Errorf("database maintenance timed out: %w", err)
			}
			s.logger.ErrorContext(ctx, "Database maintenance failed", "statement", stmt, "error", err)
			return errs.NewPersistenceError("database maintenance failed", err)
		}
	}

	s.logger.InfoContext(ctx, "Database maintenance completed successfully.")
	return nil
}
