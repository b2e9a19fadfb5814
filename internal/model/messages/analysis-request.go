package messages

import (
	"time"

	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
)

// AnalysisRequest arrives on analysis/request/{field}. Input may be omitted,
// in which case the latest telemetry of FieldID is used.
type AnalysisRequest struct {
	RequestID string                       `json:"request_id"`
	FieldID   string                       `json:"field_id"`
	Input     *entities.EnvironmentalInput `json:"input,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}
