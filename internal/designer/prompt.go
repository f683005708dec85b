package designer

import (
	"fmt"
	"strings"
)

const unstagePrompt = "remove all furniture, rugs and decorations from the room, " +
	"leave an empty room with bare walls, floor, windows and doors unchanged"

const defaultNegativePrompt = "lowres, watermark, banner, logo, text, deformed, blurry, " +
	"out of focus, surreal, ugly, distorted architecture, extra windows"

// builds the generate prompt from the style options and optional free text
func buildDesignPrompt(req GenerateRequest) string {
	roomType := strings.TrimSpace(req.RoomType)
	if roomType == "" {
		roomType = "room"
	}

	parts := []string{
		fmt.Sprintf("%s style %s", strings.TrimSpace(req.Style), roomType),
		"interior design",
	}

	if theme := strings.TrimSpace(req.ColorTheme); theme != "" {
		parts = append(parts, theme+" color palette")
	}

	if extra := strings.TrimSpace(req.Prompt); extra != "" {
		parts = append(parts, extra)
	}

	parts = append(parts, "photorealistic", "high resolution", "natural lighting")

	return strings.Join(parts, ", ")
}
