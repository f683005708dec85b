package replicate

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// the prediction did not reach a terminal state within MaxWait or MaxPolls
	ErrTimeout = errors.New("prediction timed out")

	// the prediction succeeded but produced no output
	ErrEmptyOutput = errors.New("prediction returned no output")
)

// lifecycle state of a prediction as reported by Replicate
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// reports whether no further transitions will happen
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// one remote inference job
type Prediction struct {
	ID      string         `json:"id"`
	Model   string         `json:"model,omitempty"`
	Version string         `json:"version,omitempty"`
	Status  Status         `json:"status"`
	Input   map[string]any `json:"input,omitempty"`
	Output  Output         `json:"output"`
	Error   string         `json:"error"`
	Logs    string         `json:"logs,omitempty"`
	URLs    URLs           `json:"urls"`
}

type URLs struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel"`
}

// Output is the list of result URLs. Models return either a single string
// or an array of strings, both decode into this type.
type Output []string

func (o *Output) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*o = nil
		} else {
			*o = Output{single}
		}

		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("unsupported prediction output: %w", err)
	}

	*o = many

	return nil
}

// non-2xx response from the Replicate API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("replicate API request failed with status %d: %s", e.StatusCode, e.Body)
}

// the prediction reached the failed or canceled state
type PredictionError struct {
	ID      string
	Status  Status
	Message string
}

func (e *PredictionError) Error() string {
	if e.Status == StatusCanceled {
		return "prediction canceled: " + e.Message
	}

	return "prediction failed: " + e.Message
}

// holds configuration for the Replicate client
type Config struct {
	APIToken     string
	BaseURL      string        // e.g., "https://api.replicate.com/v1"
	PollInterval time.Duration // delay between status polls
	MaxWait      time.Duration // total time budget for one prediction
	MaxPolls     int

	// outgoing request pacing shared by all callers
	RequestsPerSecond float64
	Burst             int

	HTTPClient *http.Client
}

type createRequest struct {
	Version string         `json:"version,omitempty"`
	Input   map[string]any `json:"input"`
}
