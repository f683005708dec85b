package websocket

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"

	"codeberg.org/restage/server/internal/logger"
)

// creates a message with a marshaled payload
func NewMessage(msgType, userID string, payload any) (*Message, error) {
	msg := &Message{
		Type:      msgType,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		msg.Payload = data
	}

	return msg, nil
}

// returns an origin checker for the upgrader; outside production every origin is accepted
func CheckOrigin(allowedOrigins []string, production bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if !production {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			logger.Warn("websocket connection with no origin header")
			return false
		}

		if len(allowedOrigins) == 0 {
			logger.Warn("websocket origin rejected - ALLOWED_ORIGINS not configured",
				"origin", origin,
			)
			return false
		}

		if slices.Contains(allowedOrigins, origin) {
			return true
		}

		logger.Warn("websocket origin rejected - not in allowed origins",
			"origin", origin,
			"allowed_origins", allowedOrigins,
		)

		return false
	}
}

func GenerateClientID() string {
	return uuid.NewString()
}
