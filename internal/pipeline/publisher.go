package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sounding-skewt/internal/domain"
)

// LogPublisher writes analyses to the service log instead of a broker.
// Used when no Kafka brokers are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (lp LogPublisher) Publish(_ context.Context, a domain.Analysis) error {
	lp.Logger.Info("analysis ready",
		"station", a.Station,
		"station_name", a.StationName,
		"observed_at", a.ObservedAt,
		"levels", len(a.Sounding.Levels),
		"lcl_hpa", a.Trace.LCL.Pressure,
		"cape_jkg", energyValue(a.Energy.CAPE, a.Energy.HasCAPE()),
		"cin_jkg", energyValue(a.Energy.CIN, a.Energy.HasCIN()),
	)
	return nil
}
