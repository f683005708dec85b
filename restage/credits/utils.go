package credits

import "fmt"

// clamps a requested history size into [1, MaxHistoryLimit]
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}

	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}

	return limit
}

func describe(op OperationType) string {
	switch op {
	case OperationGenerate:
		return "room design generation"
	case OperationInpaint:
		return "inpainting edit"
	case OperationUnstage:
		return "furniture removal"
	}

	return fmt.Sprintf("%s operation", op)
}
