package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pillwise/backend/internal/domain"
	"github.com/pillwise/backend/internal/metrics"
)

// saveTimeout bounds a single best-effort run store write
const saveTimeout = 2 * time.Second

// PipelineError reports the stage at which a run failed
type PipelineError struct {
	RunID string
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// RecommendationServiceConfig holds the stages and collaborators of the pipeline
type RecommendationServiceConfig struct {
	Analysis   *AnalysisStage
	Keywords   *KeywordPreprocessor
	Collection *CollectionStage
	Selection  *SelectionStage
	Safety     *SafetyStage
	Runs       domain.RunRepository
}

// RecommendationService drives one run through analysis, collection, selection and safety
type RecommendationService struct {
	analysis   *AnalysisStage
	keywords   *KeywordPreprocessor
	collection *CollectionStage
	selection  *SelectionStage
	safety     *SafetyStage
	runs       domain.RunRepository
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewRecommendationService creates the orchestrator. Runs may be nil to disable run records.
func NewRecommendationService(cfg RecommendationServiceConfig, logger *zap.Logger) *RecommendationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecommendationService{
		analysis:   cfg.Analysis,
		keywords:   cfg.Keywords,
		collection: cfg.Collection,
		selection:  cfg.Selection,
		safety:     cfg.Safety,
		runs:       cfg.Runs,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Recommend runs the full pipeline for profile. The response is only produced once
// every stage succeeded; any stage failure returns a *PipelineError.
// Cancellation of ctx does not stop a run that has started.
func (s *RecommendationService) Recommend(ctx context.Context, profile domain.UserProfile) (*domain.RecommendationResponse, error) {
	if err := profile.Normalize(); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	run := domain.NewRunRecord(s.newID(), s.now())
	logger := s.logger.With(zap.String("run_id", run.ID))
	s.save(ctx, run)

	logger.Info("recommendation run started", zap.String("budget_range", string(profile.BudgetRange)))

	var analysis *domain.AnalysisResult
	err := s.runStage(ctx, run, stageAnalysis, domain.RunAnalyzed, func() (map[string]int, error) {
		var err error
		analysis, err = s.analysis.Analyze(ctx, &profile)
		if err != nil {
			return nil, err
		}
		return map[string]int{"nutrients": len(analysis.RequiredNutrients), "keywords": len(analysis.SearchKeywords)}, nil
	})
	if err != nil {
		return nil, s.abort(logger, err)
	}

	var products []domain.ProductListing
	_ = s.runStage(ctx, run, stageCollection, domain.RunCollected, func() (map[string]int, error) {
		keywords := s.keywords.Prepare(analysis.SearchKeywords)
		products = s.collection.Collect(ctx, keywords)
		return map[string]int{"keywords": len(keywords), "listings": len(products)}, nil
	})

	var selection *domain.SelectionResult
	err = s.runStage(ctx, run, stageSelection, domain.RunSelected, func() (map[string]int, error) {
		var err error
		selection, err = s.selection.Select(ctx, products, &profile, analysis)
		if err != nil {
			return nil, err
		}
		selected := 0
		if selection.SelectedProduct != nil {
			selected = 1
		}
		return map[string]int{"candidates": len(products), "selected": selected}, nil
	})
	if err != nil {
		return nil, s.abort(logger, err)
	}

	var safety *domain.SafetyResult
	err = s.runStage(ctx, run, stageSafety, domain.RunVerified, func() (map[string]int, error) {
		var err error
		safety, err = s.safety.Verify(ctx, selection, profile.MedicationsAllergies)
		return nil, err
	})
	if err != nil {
		return nil, s.abort(logger, err)
	}

	if err := run.Transition(domain.RunCompleted, s.now()); err != nil {
		return nil, err
	}
	s.save(ctx, run)
	metrics.RecommendationRunsTotal.WithLabelValues(string(domain.RunCompleted)).Inc()

	logger.Info("recommendation run completed",
		zap.Int("listings", len(products)),
		zap.String("verification_status", string(safety.VerificationStatus)),
		zap.Duration("elapsed", run.UpdatedAt.Sub(run.StartedAt)),
	)
	return domain.NewRecommendationResponse(run.ID, analysis, products, selection, safety), nil
}

// GetRun returns a stored run record
func (s *RecommendationService) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	if s.runs == nil {
		return nil, domain.ErrRunNotFound
	}
	return s.runs.Get(ctx, id)
}

// runStage times fn, records the stage on run and moves run to next, or to failed on error
func (s *RecommendationService) runStage(
	ctx context.Context,
	run *domain.RunRecord,
	name string,
	next domain.RunState,
	fn func() (map[string]int, error),
) error {
	start := s.now()
	counters, err := fn()
	elapsed := s.now().Sub(start)
	metrics.RecordStage(name, err, elapsed)

	record := domain.StageRecord{
		Name:       name,
		Status:     "ok",
		DurationMs: elapsed.Milliseconds(),
		Counters:   counters,
	}
	if err != nil {
		record.Status = "failed"
		record.Error = err.Error()
		run.Stages = append(run.Stages, record)
		_ = run.Fail(err, s.now())
		s.save(ctx, run)
		return &PipelineError{RunID: run.ID, Stage: name, Err: err}
	}

	run.Stages = append(run.Stages, record)
	if err := run.Transition(next, s.now()); err != nil {
		return &PipelineError{RunID: run.ID, Stage: name, Err: err}
	}
	s.save(ctx, run)
	return nil
}

func (s *RecommendationService) abort(logger *zap.Logger, err error) error {
	metrics.RecommendationRunsTotal.WithLabelValues(string(domain.RunFailed)).Inc()

	var perr *PipelineError
	stage := ""
	if errors.As(err, &perr) {
		stage = perr.Stage
	}
	logger.Error("recommendation run failed", zap.String("stage", stage), zap.Error(err))
	return err
}

// save writes run to the store; failures are logged and never affect the pipeline
func (s *RecommendationService) save(ctx context.Context, run *domain.RunRecord) {
	if s.runs == nil {
		return
	}
	saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
	defer cancel()

	if err := s.runs.Save(saveCtx, run); err != nil {
		s.logger.Warn("failed to save run record",
			zap.String("run_id", run.ID),
			zap.String("state", string(run.State)),
			zap.Error(err),
		)
	}
}
