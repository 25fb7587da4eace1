package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/puntomapa/puntomapa/internal/service"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
