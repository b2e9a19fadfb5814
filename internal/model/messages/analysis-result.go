package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// AnalysisResultEvent is published by the advisor for every request it
// handles. Result is set only when Status is OK; an error never carries a
// partial result.
type AnalysisResultEvent struct {
	RequestID   string                   `json:"request_id"`
	FieldID     string                   `json:"field_id"`
	Status      string                   `json:"status"` // "OK" | "ERROR"
	Error       string                   `json:"error,omitempty"`
	InputSource string                   `json:"input_source"` // "request" | "telemetry"
	Result      *entities.AnalysisResult `json:"result,omitempty"`
	Timestamp   time.Time                `json:"timestamp"`
}
