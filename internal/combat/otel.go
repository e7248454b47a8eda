package combat

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/supremacy-go/combat/internal/combat"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type instruments struct {
	rounds    metric.Int64Counter
	destroyed metric.Int64Counter
	duration  metric.Float64Histogram
}

func newInstruments() (*instruments, error) {
	m := meter()
	var (
		in  instruments
		err error
	)
	in.rounds, err = m.Int64Counter(
		"combat.rounds.resolved",
		metric.WithDescription("Total combat rounds resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rounds counter: %w", err)
	}
	in.destroyed, err = m.Int64Counter(
		"combat.units.destroyed",
		metric.WithDescription("Total units destroyed in combat"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating destroyed counter: %w", err)
	}
	in.duration, err = m.Float64Histogram(
		"combat.round.duration",
		metric.WithDescription("Time spent resolving a round"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return &in, nil
}
