package app

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/rigol-scope/internal/scope"
)

func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	options := []func(*scope.Session){scope.WithLogger(logger)}
	if config.Device.SettleDelay != nil {
		options = append(options, scope.WithSettleDelay(config.Device.SettleDelay.Duration()))
	}

	logger.Info("opening oscilloscope", slog.String("device", config.Device.Config.String()))

	session, err := scope.Open(config.Device.Config, options...)
	if err != nil {
		return err
	}
	defer session.Close()

	id, err := session.Identify()
	if err != nil {
		return err
	}
	logger.Info("connected", slog.String("id", id))

	capture, err := acquire(ctx, session, config, logger)
	if err != nil {
		return err
	}

	return render(capture, &config.Output, logger)
}

// acquire applies the acquisition settings and reads the configured channel
func acquire(ctx context.Context, session *scope.Session, config *Config, logger *slog.Logger) (*scope.Capture, error) {
	if err := configure(session, &config.Acquisition, logger); err != nil {
		return nil, fmt.Errorf("configuring oscilloscope: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch, err := session.Channel(config.Channel)
	if err != nil {
		return nil, err
	}

	capture, err := ch.Capture()
	if err != nil {
		return nil, err
	}

	cal := capture.Calibration
	logger.Info("captured waveform",
		slog.Group("stats",
			slog.String("channel", ch.String()),
			slog.String("samples", humanize.Comma(int64(len(capture.Raw)))),
			slog.String("size", humanize.Bytes(uint64(len(capture.Raw)))),
			slog.String("sampleRate", humanize.SIWithDigits(cal.SampleRate, 2, "Sa/s")),
			slog.String("timeScale", humanize.SIWithDigits(cal.SecondsPerDiv, 2, "s/div")),
			slog.String("timeOffset", humanize.SIWithDigits(cal.TimeOffset, 2, "s")),
			slog.String("voltScale", humanize.SIWithDigits(cal.VoltsPerDiv, 2, "V/div")),
			slog.String("voltOffset", humanize.SIWithDigits(cal.VoltOffset, 2, "V")),
		))

	return capture, ctx.Err()
}

// configure sends the settings present in config, then Auto and Run when enabled
func configure(session *scope.Session, config *AcquisitionConfig, logger *slog.Logger) error {
	type step struct {
		name  string
		value any
		apply func() error
	}

	var steps []step
	if v := config.KeysLocked; v != nil {
		steps = append(steps, step{"keysLocked", *v, func() error { return session.SetKeysLocked(*v) }})
	}
	if v := config.TimeMode; v != nil {
		steps = append(steps, step{"timeMode", *v, func() error { return session.SetTimeMode(scope.TimeMode(*v)) }})
	}
	if v := config.TimeScale; v != nil {
		steps = append(steps, step{"timeScale", *v, func() error { return session.SetTimeScale(*v) }})
	}
	if v := config.TimeOffset; v != nil {
		steps = append(steps, step{"timeOffset", *v, func() error { return session.SetTimeOffset(*v) }})
	}
	if v := config.AcquireMode; v != nil {
		steps = append(steps, step{"acquireMode", *v, func() error { return session.SetAcquireMode(scope.AcquireMode(*v)) }})
	}
	if v := config.Averages; v != nil {
		steps = append(steps, step{"averages", *v, func() error { return session.SetAverages(*v) }})
	}
	if v := config.MemoryDepth; v != nil {
		steps = append(steps, step{"memoryDepth", *v, func() error { return session.SetMemoryDepth(scope.MemoryDepth(*v)) }})
	}
	if config.Auto {
		steps = append(steps, step{"auto", true, session.Auto})
	}
	if config.Run {
		steps = append(steps, step{"run", true, session.Run})
	}

	for _, s := range steps {
		logger.Debug("applying setting", slog.String("setting", s.name), slog.Any("value", s.value))
		if err := s.apply(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func render(capture *scope.Capture, config *OutputConfig, logger *slog.Logger) error {
	data, err := NewPlotData(capture)
	if err != nil {
		return err
	}

	renderer, err := NewPlotRenderer(RenderConfig{
		Width:  config.Width,
		Height: config.Height,
		Theme:  config.Theme,
	})
	if err != nil {
		return fmt.Errorf("creating plot renderer: %w", err)
	}

	logger.Info("rendering waveform",
		slog.Group("image",
			slog.String("destination", config.Path()),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
			slog.Int("width", config.Width),
			slog.Int("height", config.Height),
			slog.String("timeUnit", data.Unit.String()),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering waveform: %w", err)
	}

	out, err := os.Create(config.Path())
	if err != nil {
		return err
	}
	defer out.Close()

	if err = encode(out, img, config.Format); err != nil {
		return fmt.Errorf("encoding %s: %w", config.Format, err)
	}
	return out.Close()
}

func encode(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case ImagePNG:
		return png.Encode(w, img)

	case ImageJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{
			Quality: 98,
		})
	}
	return fmt.Errorf("invalid image format: %s", format)
}
