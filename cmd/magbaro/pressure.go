package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/magbaro/baro"
	"github.com/mklimuk/magbaro/cmd/magbaro/console"
	"github.com/mklimuk/magbaro/snsctx"
)

var pressureCmd = cli.Command{
	Name:    "pressure",
	Aliases: []string{"baro"},
	Usage:   "read the barometric pressure/temperature sensor",
	Subcommands: cli.Commands{
		&pressureReadCmd,
		&pressureWatchCmd,
		&pressureResetCmd,
	},
}

var pressureFlags = append([]cli.Flag{
	&cli.IntFlag{Name: "address", Value: 0x76, Usage: "7-bit sensor address (0x77 when SDO is high)"},
	&cli.Float64Flag{Name: "sea-level", Value: 1013.25, Usage: "sea-level pressure reference in hPa"},
}, adapterFlags...)

func newBarometer(c *cli.Context) (*baro.BMP280, func() error, error) {
	bus, closer, err := openBus(c)
	if err != nil {
		return nil, nil, err
	}
	s := baro.NewBMP280(bus,
		baro.WithAddress(byte(c.Int("address"))),
		baro.WithSeaLevel(c.Float64("sea-level")),
	)
	return s, closer, nil
}

var pressureReadCmd = cli.Command{
	Name:  "read",
	Flags: pressureFlags,
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		s, closer, err := newBarometer(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		if err := s.Init(ctx); err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		r, err := s.Read(ctx)
		if err != nil {
			return console.Exit(1, "error getting pressure read: %s", console.Red(err))
		}
		printReading(r)
		return nil
	},
}

var pressureWatchCmd = cli.Command{
	Name: "watch",
	Flags: append([]cli.Flag{
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: time.Second},
	}, pressureFlags...),
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(snsctx.SetVerbose(context.Background(), c.Bool("verbose")), os.Interrupt)
		defer stop()
		s, closer, err := newBarometer(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		// initialization failure is fatal: polling against an unloaded
		// calibration set is undefined
		if err := s.Init(ctx); err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}

		ticker := time.NewTicker(c.Duration("interval"))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			r, err := s.Read(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				slog.Warn("pressure read failed", "error", err)
				continue
			}
			printReading(r)
		}
	},
}

var pressureResetCmd = cli.Command{
	Name:  "reset",
	Usage: "soft-reset the sensor (drops loaded calibration)",
	Flags: pressureFlags,
	Action: func(c *cli.Context) error {
		confirmed, err := console.Confirm("reset the barometer?")
		if err != nil {
			return console.Exit(1, "prompt error: %s", console.Red(err))
		}
		if !confirmed {
			console.Print("aborted")
			return nil
		}
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		s, closer, err := newBarometer(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		if err := s.Reset(ctx); err != nil {
			return console.Exit(1, "reset error: %s", console.Red(err))
		}
		console.Print("sensor reset")
		return nil
	},
}

func printReading(r baro.Reading) {
	console.Printf("%s  %s °C | %s %s hPa | %s %s m\n",
		console.PictoThermometer, console.White(r.Temperature),
		console.PictoPressure, console.White(r.Pressure),
		console.PictoMountain, console.White(r.Altitude))
}
