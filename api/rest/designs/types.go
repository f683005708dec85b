package designs

import (
	"context"

	"codeberg.org/restage/server/internal/designer"
)

// the orchestrator operations exposed over HTTP
type Designer interface {
	Unstage(ctx context.Context, userID, image string) (string, error)
	Generate(ctx context.Context, req designer.GenerateRequest) ([]string, error)
	Inpaint(ctx context.Context, req designer.InpaintRequest) (string, error)
}

// UnstageRequest carries a room photo as base64, with or without a data URI prefix
type UnstageRequest struct {
	Image string `json:"image" binding:"required"`
}

type UnstageResponse struct {
	EmptyRoomURL string `json:"emptyRoomUrl"`
}

type GenerateRequest struct {
	Image      string `json:"image" binding:"required"`
	Style      string `json:"style" binding:"required,max=100"`
	RoomType   string `json:"roomType" binding:"max=100"`
	ColorTheme string `json:"colorTheme" binding:"max=100"`
	Prompt     string `json:"prompt" binding:"max=1000"`
}

type GenerateResponse struct {
	Designs []string `json:"designs"`
}

type InpaintRequest struct {
	Image  string `json:"image" binding:"required"`
	Mask   string `json:"mask" binding:"required"`
	Prompt string `json:"prompt" binding:"required,max=1000"`
}

type InpaintResponse struct {
	InpaintedImage string `json:"inpaintedImage"`
}
