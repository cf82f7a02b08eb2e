package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/docuverse/studio/internal/generation"
	"github.com/docuverse/studio/internal/models"
	"github.com/docuverse/studio/internal/notify"
	"github.com/docuverse/studio/internal/repository"
	"github.com/docuverse/studio/internal/workflow"
	appErr "github.com/docuverse/studio/pkg/errors"
	"github.com/docuverse/studio/pkg/logger"
)

// TaskTypeEnhance is the asynq task type for background enhancement builds.
const TaskTypeEnhance = "generation:enhance"

// EnhancePayload is the asynq payload for TaskTypeEnhance.
type EnhancePayload struct {
	ProjectID string `json:"project_id"`
}

// GenerationService orchestrates document generation against the engine.
type GenerationService interface {
	// Submit runs a blocking generation for the project, falling back to
	// recovery polling when the engine outlives its deadline.
	Submit(ctx context.Context, projectID, userID uuid.UUID, input *SubmitInput) (*SubmitResult, error)

	// Progress reports merged progress for the project's in-flight job.
	Progress(ctx context.Context, projectID, userID uuid.UUID) (*ProgressReport, error)

	// CheckEnhanced checks the background enhancement build and applies
	// the enhanced artifact when it is ready.
	CheckEnhanced(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error)

	// ApplyEnhanced waits for the enhanced build and applies it. Called
	// by the worker; returns an error when the build is not ready yet so
	// the task is retried.
	ApplyEnhanced(ctx context.Context, projectID uuid.UUID) error
}

type SubmitInput struct {
	Tier  generation.Tier
	Input json.RawMessage
}

type SubmitResult struct {
	Project   *models.Project  `json:"project"`
	Artifact  *models.Artifact `json:"artifact,omitempty"`
	Tier      generation.Tier  `json:"tier,omitempty"`
	Recovered bool             `json:"recovered"`

	// Pending means the job was still running when the recovery budget
	// ran out. The project is left untouched and the claim is released,
	// so progress reporting stops; resubmitting picks the document up
	// once the engine has finished it.
	Pending bool   `json:"pending"`
	Message string `json:"message,omitempty"`
}

type ProgressReport struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
	Note    string `json:"note,omitempty"`
	Done    bool   `json:"done"`
}

// ProgressSource is the merged-progress seam. *generation.Reporter
// implements it.
type ProgressSource interface {
	Current(ctx context.Context, jobKey string, startedAt time.Time) (int, string)
	// Forget clears any per-job progress state once a run has ended, so
	// the next run for the same job key starts from zero.
	Forget(jobKey string)
}

type generationService struct {
	projectRepo  repository.ProjectRepository
	artifactRepo repository.ArtifactRepository
	engine       generation.Engine
	generator    generation.Generator
	recoverer    generation.Recoverer
	progress     ProgressSource
	dispatcher   notify.Dispatcher
	asynqClient  *asynq.Client
	frontendURL  string

	enhanceInterval    time.Duration
	enhanceMaxAttempts int
	now                func() time.Time
}

func NewGenerationService(
	projectRepo repository.ProjectRepository,
	artifactRepo repository.ArtifactRepository,
	engine generation.Engine,
	generator generation.Generator,
	recoverer generation.Recoverer,
	progress ProgressSource,
	dispatcher notify.Dispatcher,
	asynqClient *asynq.Client,
	frontendURL string,
) GenerationService {
	return &generationService{
		projectRepo:        projectRepo,
		artifactRepo:       artifactRepo,
		engine:             engine,
		generator:          generator,
		recoverer:          recoverer,
		progress:           progress,
		dispatcher:         dispatcher,
		asynqClient:        asynqClient,
		frontendURL:        frontendURL,
		enhanceInterval:    generation.DefaultRecoveryInterval,
		enhanceMaxAttempts: generation.DefaultRecoveryMaxAttempts,
		now:                time.Now,
	}
}

var _ GenerationService = (*generationService)(nil)

func (s *generationService) Submit(ctx context.Context, projectID, userID uuid.UUID, input *SubmitInput) (*SubmitResult, error) {
	logger.L().Info("submit generation", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()), zap.String("tier", string(input.Tier)))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	tier := input.Tier
	if tier == "" {
		tier = generation.TierQuick
	}
	if !generation.KnownTier(tier) {
		return nil, appErr.New(appErr.CodeInvalid, fmt.Sprintf("unknown tier %q", tier))
	}

	payload := input.Input
	if len(payload) > 0 {
		p.GenerationInput = datatypes.JSON(payload)
	} else {
		payload = json.RawMessage(p.GenerationInput)
	}
	if len(payload) == 0 {
		return nil, appErr.New(appErr.CodeInvalid, "generation input is required")
	}

	startedAt := s.now()
	if err := s.projectRepo.ClaimGeneration(ctx, p.ID, startedAt); err != nil {
		return nil, err
	}
	p.Generating = true
	p.GenerationStartedAt = &startedAt

	// The claim must be released on every exit path. Completed paths
	// clear the flag inside their own transaction, which makes this a
	// no-op there.
	defer func() {
		if err := s.projectRepo.ReleaseGeneration(context.WithoutCancel(ctx), p.ID); err != nil {
			logger.L().Error("release generation claim failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		}
		s.progress.Forget(p.ID.String())
	}()

	jobKey := p.ID.String()
	recovered := false

	out, err := s.generator.Generate(ctx, jobKey, payload, tier)
	if err != nil {
		switch {
		case errors.Is(err, generation.ErrTimeout):
			logger.L().Warn("generation timed out, entering recovery", zap.String("project_id", p.ID.String()))
			location, gotTier, rerr := s.recoverer.Recover(ctx, jobKey, func(msg string) {
				_ = s.projectRepo.SetGenerationMessage(ctx, p.ID, msg)
			})
			if rerr != nil {
				if errors.Is(rerr, generation.ErrRecoveryExhausted) {
					logger.L().Warn("recovery exhausted, leaving job to the engine", zap.String("project_id", p.ID.String()))
					return &SubmitResult{
						Project: &p,
						Pending: true,
						Message: "The document is taking longer than expected. Resubmit in a little while to pick it up once the engine finishes.",
					}, nil
				}
				return nil, rerr
			}
			out = &generation.Outcome{Location: location, Tier: gotTier}
			recovered = true
		case errors.Is(err, generation.ErrNoArtifact):
			return nil, appErr.Wrap(err, appErr.CodeInternal, "engine produced no artifact")
		default:
			var engineErr *generation.EngineError
			if errors.As(err, &engineErr) {
				return nil, appErr.Wrap(err, appErr.CodeUnavailable, "document generation failed")
			}
			return nil, appErr.Wrap(err, appErr.CodeInternal, "document generation failed")
		}
	}

	if p.DocumentURL != "" {
		p.ReviewedDocumentURL = p.DocumentURL
	}
	p.DocumentURL = out.Location
	p.Generating = false
	p.GenerationMessage = ""

	// Fast tiers get a background enhanced build.
	enqueueEnhance := out.Tier == generation.TierQuick || out.Tier == generation.TierInstant
	if enqueueEnhance {
		p.EnhanceStatus = models.EnhanceBuilding
		p.EnhanceMessage = "Building enhanced document in the background."
		p.EnhanceLastError = ""
	}

	artifact := &models.Artifact{
		ProjectID: p.ID,
		Tier:      string(out.Tier),
		Location:  out.Location,
		Filename:  generation.Slug(p.Title) + ".md",
	}
	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      s.now(),
		Title:           workflow.TitleDocumentRegenerated,
		Description:     fmt.Sprintf("Generated %s document.", out.Tier),
		ResultingStatus: p.Status,
	}
	if err := s.artifactRepo.Apply(ctx, &p, artifact, event); err != nil {
		return nil, err
	}

	if enqueueEnhance {
		s.enqueueEnhance(ctx, p.ID)
	}

	s.dispatcher.Publish(ctx, notify.Event{
		Kind: notify.KindSRSGenerated,
		Project: notify.ProjectInfo{
			ID:           p.ID.String(),
			Name:         p.Title,
			Domain:       p.Domain,
			ShareID:      p.ShareID,
			Author:       p.UserID.String(),
			DocumentPath: out.Location,
			CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
		},
		Links: notify.Links{
			View:     fmt.Sprintf("%s/projects/%s", s.frontendURL, p.ShareID),
			Download: out.Location,
		},
	})

	logger.L().Info("generation completed",
		zap.String("project_id", p.ID.String()),
		zap.String("tier", string(out.Tier)),
		zap.Bool("recovered", recovered))
	return &SubmitResult{Project: &p, Artifact: artifact, Tier: out.Tier, Recovered: recovered}, nil
}

func (s *generationService) Progress(ctx context.Context, projectID, userID uuid.UUID) (*ProgressReport, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	if !p.Generating {
		if p.DocumentURL != "" {
			return &ProgressReport{Percent: 100, Message: "Document ready.", Done: true}, nil
		}
		return &ProgressReport{Percent: 0, Message: "No generation in progress."}, nil
	}

	startedAt := s.now()
	if p.GenerationStartedAt != nil {
		startedAt = *p.GenerationStartedAt
	}
	percent, message := s.progress.Current(ctx, p.ID.String(), startedAt)
	return &ProgressReport{Percent: percent, Message: message, Note: p.GenerationMessage}, nil
}

func (s *generationService) CheckEnhanced(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	if p.EnhanceStatus != models.EnhanceBuilding {
		return &p, nil
	}

	checkedAt := s.now()
	p.EnhanceCheckedAt = &checkedAt

	status, err := s.engine.Status(ctx, p.ID.String())
	if err != nil {
		p.EnhanceLastError = err.Error()
		if uerr := s.projectRepo.Update(ctx, &p); uerr != nil {
			return nil, uerr
		}
		return &p, nil
	}

	if status.EnhancedReady && status.EnhancedDownloadURL != "" {
		if err := s.applyEnhancedArtifact(ctx, &p, status.EnhancedDownloadURL); err != nil {
			return nil, err
		}
		return &p, nil
	}

	p.EnhanceMessage = "Enhanced document is still building."
	if err := s.projectRepo.Update(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *generationService) ApplyEnhanced(ctx context.Context, projectID uuid.UUID) error {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return err
	}
	if p.EnhanceStatus != models.EnhanceBuilding {
		logger.L().Info("enhance task skipped, nothing building", zap.String("project_id", projectID.String()), zap.String("enhance_status", p.EnhanceStatus))
		return nil
	}

	for attempt := 1; attempt <= s.enhanceMaxAttempts; attempt++ {
		status, err := s.engine.Status(ctx, p.ID.String())
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.L().Warn("enhance status check failed", zap.String("project_id", p.ID.String()), zap.Int("attempt", attempt), zap.Error(err))
		} else if status.EnhancedReady && status.EnhancedDownloadURL != "" {
			return s.applyEnhancedArtifact(ctx, &p, status.EnhancedDownloadURL)
		}

		if attempt == s.enhanceMaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.enhanceInterval):
		}
	}

	p.EnhanceLastError = "enhanced build not ready within polling budget"
	checkedAt := s.now()
	p.EnhanceCheckedAt = &checkedAt
	if err := s.projectRepo.Update(ctx, &p); err != nil {
		return err
	}
	// Returning an error lets asynq retry the task later.
	return fmt.Errorf("enhanced build for project %s not ready yet", p.ID)
}

func (s *generationService) applyEnhancedArtifact(ctx context.Context, p *models.Project, location string) error {
	checkedAt := s.now()
	if p.DocumentURL != "" {
		p.ReviewedDocumentURL = p.DocumentURL
	}
	p.DocumentURL = location
	p.EnhanceStatus = models.EnhanceApplied
	p.EnhanceMessage = "Enhanced document applied."
	p.EnhanceLastError = ""
	p.EnhanceCheckedAt = &checkedAt

	artifact := &models.Artifact{
		ProjectID: p.ID,
		Tier:      string(generation.TierEnhanced),
		Location:  location,
		Filename:  generation.Slug(p.Title) + ".md",
	}
	event := &models.TimelineEvent{
		ProjectID:       p.ID,
		OccurredAt:      checkedAt,
		Title:           workflow.TitleEnhancedReady,
		Description:     "Enhanced document replaced the active artifact.",
		ResultingStatus: p.Status,
	}
	if err := s.artifactRepo.Apply(ctx, p, artifact, event); err != nil {
		return err
	}
	logger.L().Info("enhanced artifact applied", zap.String("project_id", p.ID.String()))
	return nil
}

func (s *generationService) enqueueEnhance(ctx context.Context, projectID uuid.UUID) {
	pb, _ := json.Marshal(EnhancePayload{ProjectID: projectID.String()})
	task := asynq.NewTask(TaskTypeEnhance, pb)
	if s.asynqClient == nil {
		logger.L().Warn("asynq client not configured, skipping enhance enqueue", zap.String("project_id", projectID.String()))
		return
	}
	if _, err := s.asynqClient.EnqueueContext(ctx, task); err != nil {
		logger.L().Error("enqueue enhance task failed", zap.String("project_id", projectID.String()), zap.Error(err))
	}
}
