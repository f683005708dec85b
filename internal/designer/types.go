package designer

import (
	"context"
	"errors"

	"codeberg.org/restage/server/internal/outbox"
	"codeberg.org/restage/server/restage/credits"
)

// returned (wrapped) when an image or mask cannot be normalized
var ErrInvalidImage = errors.New("invalid image data")

// runs a prediction to completion and returns its output URLs
type Inference interface {
	Run(ctx context.Context, model string, input map[string]any) ([]string, error)
}

// records debits that could not be written after a successful operation
type OwedDebits interface {
	Push(ctx context.Context, debit outbox.OwedDebit) error
}

// receives progress events for a user; implemented by the websocket hub
type Notifier interface {
	SendToUser(userID, messageType string, payload any)
}

// sequences inference calls and ledger debits for one user-facing action
type Service struct {
	inference Inference
	ledger    credits.Ledger
	owed      OwedDebits
	notifier  Notifier
	config    Config
}

// model references and sampling parameters
type Config struct {
	UnstageModel  string
	GenerateModel string
	InpaintModel  string

	GuidanceScale      float64 // classifier-free guidance for generate and inpaint
	ImageGuidanceScale float64 // how closely unstage sticks to the source photo
	PromptStrength     float64 // how much generate may depart from the empty room
	Steps              int     // diffusion steps for every model
	NegativePrompt     string
}

// contains all inputs for a room redesign
type GenerateRequest struct {
	UserID     string
	Image      string
	Style      string
	RoomType   string
	ColorTheme string
	Prompt     string
}

// contains all inputs for a masked edit
type InpaintRequest struct {
	UserID string
	Image  string
	Mask   string
	Prompt string
}

// progress stages published while an operation runs
type Stage string

const (
	StageQueued     Stage = "queued"
	StageUnstaging  Stage = "unstaging"
	StageGenerating Stage = "generating"
	StageInpainting Stage = "inpainting"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

// websocket message type for progress events
const MessageTypeProgress = "operation_progress"

// payload of a progress message
type ProgressEvent struct {
	OperationID string                `json:"operationId"`
	Operation   credits.OperationType `json:"operation"`
	Stage       Stage                 `json:"stage"`
	Outputs     []string              `json:"outputs,omitempty"`
	Error       string                `json:"error,omitempty"`
}
