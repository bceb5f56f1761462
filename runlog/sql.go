package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"gorm.io/gorm"
)

// SQLStore implements the Store interface using GORM.
type SQLStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewSQLStore creates a new GORM-backed run store.
func NewSQLStore(db *gorm.DB, log logger.Logger) *SQLStore {
	return &SQLStore{
		db:     db,
		logger: log,
	}
}

// Create records a new run in the database.
func (s *SQLStore) Create(ctx context.Context, run *Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	if err := run.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Error(ctx, "failed to create run", map[string]interface{}{
			"error":   err.Error(),
			"command": run.Command,
		})
		return err
	}

	s.logger.Debug(ctx, "run recorded", map[string]interface{}{
		"run_id":  run.ID,
		"command": run.Command,
	})
	return nil
}

// GetByID retrieves a run by its ID.
func (s *SQLStore) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		s.logger.Error(ctx, "failed to get run by ID", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		return nil, err
	}

	return &run, nil
}

// Finish stores the outcome of a running run.
func (s *SQLStore) Finish(ctx context.Context, id uuid.UUID, outcome Outcome) error {
	if !outcome.Status.IsFinal() {
		return ErrInvalidStatus
	}

	run, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run.Status != StatusRunning {
		return ErrRunNotRunning
	}

	now := time.Now().UTC()
	run.Status = outcome.Status
	run.ExitCode = outcome.ExitCode
	run.Mode = outcome.Mode
	run.Title = outcome.Title
	run.ResultURL = outcome.ResultURL
	run.Results = outcome.Results
	run.Error = outcome.Error
	run.EndedAt = &now

	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.logger.Error(ctx, "failed to finish run", map[string]interface{}{
			"error":  err.Error(),
			"run_id": id,
		})
		return err
	}

	s.logger.Debug(ctx, "run finished", map[string]interface{}{
		"run_id": id,
		"status": outcome.Status,
	})
	return nil
}

func (s *SQLStore) byCommand(ctx context.Context, command string) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&Run{})
	if command != "" {
		q = q.Where("command = ?", command)
	}
	return q
}

// List returns runs newest first.
func (s *SQLStore) List(ctx context.Context, command string, limit, offset int) ([]*Run, error) {
	var runs []*Run
	err := s.byCommand(ctx, command).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&runs).Error

	if err != nil {
		s.logger.Error(ctx, "failed to list runs", map[string]interface{}{
			"error":   err.Error(),
			"command": command,
		})
		return nil, err
	}

	return runs, nil
}

// Count returns the number of recorded runs.
func (s *SQLStore) Count(ctx context.Context, command string) (int, error) {
	var n int64
	if err := s.byCommand(ctx, command).Count(&n).Error; err != nil {
		s.logger.Error(ctx, "failed to count runs", map[string]interface{}{
			"error":   err.Error(),
			"command": command,
		})
		return 0, err
	}
	return int(n), nil
}
