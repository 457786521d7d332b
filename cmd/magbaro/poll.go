package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/magbaro/baro"
	"github.com/mklimuk/magbaro/cmd/magbaro/console"
	"github.com/mklimuk/magbaro/magnet"
	"github.com/mklimuk/magbaro/snsctx"
)

type pollConfig struct {
	Adapter  string        `yaml:"adapter"`
	Device   string        `yaml:"device"`
	Bus      int           `yaml:"bus"`
	Interval time.Duration `yaml:"interval"`

	Magnetometer struct {
		Enabled   bool          `yaml:"enabled"`
		Address   byte          `yaml:"address"`
		ConvDelay time.Duration `yaml:"conv_delay"`
	} `yaml:"magnetometer"`

	Barometer struct {
		Enabled  bool    `yaml:"enabled"`
		Address  byte    `yaml:"address"`
		SeaLevel float64 `yaml:"sea_level_hpa"`
	} `yaml:"barometer"`
}

func defaultPollConfig() pollConfig {
	cfg := pollConfig{
		Adapter:  "mcp2221",
		Device:   "/dev/i2c-1",
		Interval: time.Second,
	}
	cfg.Magnetometer.Enabled = true
	cfg.Magnetometer.Address = 0x0C
	cfg.Magnetometer.ConvDelay = 50 * time.Millisecond
	cfg.Barometer.Enabled = true
	cfg.Barometer.Address = 0x76
	cfg.Barometer.SeaLevel = 1013.25
	return cfg
}

func loadPollConfig(path string) (pollConfig, error) {
	cfg := defaultPollConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("could not read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("could not parse config file: %w", err)
	}
	return cfg, nil
}

var pollCmd = cli.Command{
	Name:  "poll",
	Usage: "poll both sensors on a shared bus",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML poll configuration file",
		},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadPollConfig(c.String("config"))
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		ctx, stop := signal.NotifyContext(snsctx.SetVerbose(context.Background(), c.Bool("verbose")), os.Interrupt)
		defer stop()

		// one transport instance for both drivers; each bus implementation
		// serializes its transactions so the two poll phases cannot
		// interleave on the wire
		bus, closer, err := openNamedBus(cfg.Adapter, cfg.Device, cfg.Bus)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		var mag *magnet.MLX90393
		if cfg.Magnetometer.Enabled {
			mag = magnet.NewMLX90393(bus,
				magnet.WithAddress(cfg.Magnetometer.Address),
				magnet.WithConvDelay(cfg.Magnetometer.ConvDelay),
			)
		}
		var bar *baro.BMP280
		if cfg.Barometer.Enabled {
			bar = baro.NewBMP280(bus,
				baro.WithAddress(cfg.Barometer.Address),
				baro.WithSeaLevel(cfg.Barometer.SeaLevel),
			)
			if err := bar.Init(ctx); err != nil {
				return console.Exit(1, "barometer initialization error: %s", console.Red(err))
			}
			slog.Info("barometer calibration loaded", "address", fmt.Sprintf("%#x", cfg.Barometer.Address))
		}

		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			pollOnce(ctx, mag, bar)
		}
	},
}

// pollOnce runs one cycle; a transient failure skips the reading and leaves
// the drivers armed for the next cycle.
func pollOnce(ctx context.Context, mag *magnet.MLX90393, bar *baro.BMP280) {
	if mag != nil {
		flux, _, err := mag.GetFlux(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			slog.Warn("flux read failed", "error", err)
		default:
			printFlux(flux)
		}
	}
	if bar != nil {
		r, err := bar.Read(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			slog.Warn("pressure read failed", "error", err)
		default:
			printReading(r)
		}
	}
}
