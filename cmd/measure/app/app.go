package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rigol-scope/internal/scope"
)

// notMeasurable is the value the instrument returns when a measurement cannot
// be taken on the current signal.
const notMeasurable = 9.9e37

func Run(ctx context.Context, config *Config, out io.Writer, logger *slog.Logger) error {
	session, err := scope.Open(config.Device,
		scope.WithLogger(logger),
		scope.WithSettleDelay(config.SettleDelay))
	if err != nil {
		return err
	}
	defer session.Close()

	id, err := session.Identify()
	if err != nil {
		return err
	}
	logger.Info("connected", slog.String("id", id), slog.String("device", config.Device.String()))

	ch, err := session.Channel(config.Channel)
	if err != nil {
		return err
	}

	return report(ctx, ch, config.Measurements, out)
}

// report queries every measurement of list on ch and writes one line per value
func report(ctx context.Context, ch *scope.Channel, list []scope.Measurement, out io.Writer) error {
	for _, m := range list {
		if err := ctx.Err(); err != nil {
			return err
		}

		v, err := ch.Measure(m)
		if err != nil {
			return fmt.Errorf("measuring %s on %s: %w", m.Name(), ch, err)
		}

		if _, err = fmt.Fprintf(out, "%s %-9s %s\n", ch, m.Name(), formatValue(v, m.Unit())); err != nil {
			return err
		}
	}
	return nil
}

func formatValue(v float64, unit string) string {
	switch {
	case math.IsNaN(v) || math.Abs(v) >= notMeasurable:
		return "n/a"
	case unit == "%":
		return fmt.Sprintf("%.2f %%", v)
	default:
		return humanize.SIWithDigits(v, 3, unit)
	}
}
