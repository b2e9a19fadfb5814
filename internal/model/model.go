package model

import (
	"github.com/LeonardoBeccarini/agrisoil/internal/model/entities"
	"github.com/LeonardoBeccarini/agrisoil/internal/model/messages"
)

// Aliases for the types shared across services

type (
	EnvironmentalInput  = entities.EnvironmentalInput
	CropRule            = entities.CropRule
	SoilPrediction      = entities.SoilPrediction
	CropPrediction      = entities.CropPrediction
	Candidate           = entities.Candidate
	AnalysisResult      = entities.AnalysisResult
	AnalysisRequest     = messages.AnalysisRequest
	AnalysisResultEvent = messages.AnalysisResultEvent
	TelemetryReading    = messages.TelemetryReading
)
