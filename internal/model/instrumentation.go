package model

import (
	"go.opentelemetry.io/otel"
)

const scopeName = "gamepilot/internal/model"

var tracer = otel.Tracer(scopeName)
