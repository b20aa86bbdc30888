package env

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "gamepilot/internal/env"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)

	stepCounter  = newCounter("env.steps", "Environment steps taken")
	staleCounter = newCounter("env.stale_frames", "Captures that served a re-used or black frame")
)

// newCounter creates a counter, reporting failures to the otel error
// handler. The returned counter is always usable.
func newCounter(name, desc string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		otel.Handle(fmt.Errorf("create counter %s: %w", name, err))
		c, _ = noop.NewMeterProvider().Meter(scopeName).Int64Counter(name)
	}
	return c
}
