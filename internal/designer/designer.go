package designer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"codeberg.org/restage/server/internal/imagedata"
	"codeberg.org/restage/server/internal/logger"
	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/internal/replicate"
	"codeberg.org/restage/server/restage/credits"
)

const (
	defaultGuidanceScale      = 15
	defaultImageGuidanceScale = 1.5
	defaultPromptStrength     = 0.8
	defaultSteps              = 50

	// a debit after a finished prediction must not depend on the client still being connected
	settleTimeout = 10 * time.Second
)

// notifier may be nil
func New(inference Inference, ledger credits.Ledger, owed OwedDebits, notifier Notifier, config Config) *Service {
	if config.GuidanceScale <= 0 {
		config.GuidanceScale = defaultGuidanceScale
	}

	if config.ImageGuidanceScale <= 0 {
		config.ImageGuidanceScale = defaultImageGuidanceScale
	}

	if config.PromptStrength <= 0 {
		config.PromptStrength = defaultPromptStrength
	}

	if config.Steps <= 0 {
		config.Steps = defaultSteps
	}

	if config.NegativePrompt == "" {
		config.NegativePrompt = defaultNegativePrompt
	}

	return &Service{
		inference: inference,
		ledger:    ledger,
		owed:      owed,
		notifier:  notifier,
		config:    config,
	}
}

// removes the furniture from a room photo and returns the empty room image URL
func (s *Service) Unstage(ctx context.Context, userID, image string) (string, error) {
	image, err := normalizeImage(image, false)
	if err != nil {
		return "", err
	}

	if err := s.ensureCredits(ctx, userID); err != nil {
		return "", err
	}

	op := s.begin(userID, credits.OperationUnstage)
	op.progress(StageUnstaging)

	output, err := s.inference.Run(ctx, s.config.UnstageModel, s.unstageInput(image))
	if err != nil {
		op.fail(err)
		return "", fmt.Errorf("unstage prediction: %w", err)
	}

	if len(output) == 0 {
		op.fail(replicate.ErrEmptyOutput)
		return "", replicate.ErrEmptyOutput
	}

	s.settle(ctx, userID, credits.OperationUnstage)
	op.complete(output[:1])

	return output[0], nil
}

// restyles a furnished room: the photo is unstaged first and the empty room is
// then redesigned. The whole operation costs a single generate credit.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) ([]string, error) {
	image, err := normalizeImage(req.Image, false)
	if err != nil {
		return nil, err
	}

	if err := s.ensureCredits(ctx, req.UserID); err != nil {
		return nil, err
	}

	op := s.begin(req.UserID, credits.OperationGenerate)
	op.progress(StageUnstaging)

	emptyRoom, err := s.inference.Run(ctx, s.config.UnstageModel, s.unstageInput(image))
	if err != nil {
		op.fail(err)
		return nil, fmt.Errorf("unstage prediction: %w", err)
	}

	if len(emptyRoom) == 0 {
		op.fail(replicate.ErrEmptyOutput)
		return nil, replicate.ErrEmptyOutput
	}

	op.progress(StageGenerating)

	designs, err := s.inference.Run(ctx, s.config.GenerateModel, map[string]any{
		"image":               emptyRoom[0],
		"prompt":              buildDesignPrompt(req),
		"negative_prompt":     s.config.NegativePrompt,
		"guidance_scale":      s.config.GuidanceScale,
		"prompt_strength":     s.config.PromptStrength,
		"num_inference_steps": s.config.Steps,
	})
	if err != nil {
		op.fail(err)
		return nil, fmt.Errorf("generate prediction: %w", err)
	}

	if len(designs) == 0 {
		op.fail(replicate.ErrEmptyOutput)
		return nil, replicate.ErrEmptyOutput
	}

	s.settle(ctx, req.UserID, credits.OperationGenerate)
	op.complete(designs)

	return designs, nil
}

// repaints the masked area of an image following the prompt
func (s *Service) Inpaint(ctx context.Context, req InpaintRequest) (string, error) {
	image, err := normalizeImage(req.Image, false)
	if err != nil {
		return "", err
	}

	mask, err := normalizeImage(req.Mask, true)
	if err != nil {
		return "", err
	}

	if err := s.ensureCredits(ctx, req.UserID); err != nil {
		return "", err
	}

	op := s.begin(req.UserID, credits.OperationInpaint)
	op.progress(StageInpainting)

	output, err := s.inference.Run(ctx, s.config.InpaintModel, map[string]any{
		"image":               image,
		"mask":                mask,
		"prompt":              req.Prompt,
		"negative_prompt":     s.config.NegativePrompt,
		"guidance_scale":      s.config.GuidanceScale,
		"num_inference_steps": s.config.Steps,
		"num_outputs":         1,
	})
	if err != nil {
		op.fail(err)
		return "", fmt.Errorf("inpaint prediction: %w", err)
	}

	if len(output) == 0 {
		op.fail(replicate.ErrEmptyOutput)
		return "", replicate.ErrEmptyOutput
	}

	s.settle(ctx, req.UserID, credits.OperationInpaint)
	op.complete(output[:1])

	return output[0], nil
}

func (s *Service) unstageInput(image string) map[string]any {
	return map[string]any{
		"image":                image,
		"prompt":               unstagePrompt,
		"guidance_scale":       s.config.GuidanceScale / 2,
		"image_guidance_scale": s.config.ImageGuidanceScale,
		"num_inference_steps":  s.config.Steps,
	}
}

// rejects the operation before any remote call when the user cannot pay for it
func (s *Service) ensureCredits(ctx context.Context, userID string) error {
	balance, err := s.ledger.Balance(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check balance: %w", err)
	}

	if balance < credits.OperationCost {
		return credits.ErrInsufficientCredits
	}

	return nil
}

// debits the user for a finished operation. The result has already been
// produced, so a ledger failure is recorded as an owed debit instead of
// being returned.
func (s *Service) settle(ctx context.Context, userID string, opType credits.OperationType) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	_, err := s.ledger.Debit(ctx, userID, opType)
	if err == nil {
		return
	}

	logger.ErrorCtx(ctx, err, "failed to debit credits after successful operation",
		"user_id", userID,
		"operation", opType,
	)

	if s.owed == nil {
		return
	}

	debit := outbox.NewOwedDebit(userID, opType, err)
	if pushErr := s.owed.Push(ctx, debit); pushErr != nil {
		logger.ErrorCtx(ctx, pushErr, "failed to record owed debit",
			"user_id", userID,
			"operation", opType,
			"debit_id", debit.ID,
		)
	}
}

func normalizeImage(value string, mask bool) (string, error) {
	var (
		normalized string
		err        error
	)

	if mask {
		normalized, err = imagedata.NormalizeMask(value)
	} else {
		normalized, err = imagedata.Normalize(value)
	}

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return normalized, nil
}

// tracks one operation for progress notifications
type operation struct {
	id       string
	userID   string
	kind     credits.OperationType
	notifier Notifier
}

func (s *Service) begin(userID string, kind credits.OperationType) *operation {
	op := &operation{
		id:       uuid.NewString(),
		userID:   userID,
		kind:     kind,
		notifier: s.notifier,
	}

	op.publish(ProgressEvent{Stage: StageQueued})

	return op
}

func (o *operation) progress(stage Stage) {
	o.publish(ProgressEvent{Stage: stage})
}

func (o *operation) complete(outputs []string) {
	o.publish(ProgressEvent{Stage: StageCompleted, Outputs: outputs})
}

func (o *operation) fail(err error) {
	o.publish(ProgressEvent{Stage: StageFailed, Error: err.Error()})
}

func (o *operation) publish(event ProgressEvent) {
	if o.notifier == nil {
		return
	}

	event.OperationID = o.id
	event.Operation = o.kind

	o.notifier.SendToUser(o.userID, MessageTypeProgress, event)
}
