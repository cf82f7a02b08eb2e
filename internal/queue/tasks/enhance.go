package tasks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/docuverse/studio/internal/services"
	"github.com/docuverse/studio/pkg/logger"
)

// EnhanceTaskHandler consumes background enhancement build tasks.
type EnhanceTaskHandler struct {
	genSvc services.GenerationService
}

func NewEnhanceTaskHandler(genSvc services.GenerationService) *EnhanceTaskHandler {
	return &EnhanceTaskHandler{genSvc: genSvc}
}

// HandleEnhance waits for the engine's enhanced build of a project and
// applies it. A not-ready build surfaces as an error so asynq retries
// the task with backoff.
func (h *EnhanceTaskHandler) HandleEnhance(ctx context.Context, t *asynq.Task) error {
	var p services.EnhancePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid enhance task payload", zap.Error(err))
		return err
	}
	id, err := uuid.Parse(p.ProjectID)
	if err != nil {
		logger.L().Error("invalid project id in task", zap.Error(err))
		return err
	}

	logger.L().Info("handling enhance task", zap.String("project_id", id.String()))

	if err := h.genSvc.ApplyEnhanced(ctx, id); err != nil {
		logger.L().Warn("enhance task not completed", zap.String("project_id", id.String()), zap.Error(err))
		return err
	}

	logger.L().Info("enhance task completed", zap.String("project_id", id.String()))
	return nil
}
