package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/magbaro/cmd/magbaro/console"
	"github.com/mklimuk/magbaro/magnet"
	"github.com/mklimuk/magbaro/snsctx"
)

var fluxCmd = cli.Command{
	Name:    "flux",
	Aliases: []string{"mag"},
	Usage:   "read the 3-axis magnetic flux sensor",
	Subcommands: cli.Commands{
		&fluxReadCmd,
		&fluxWatchCmd,
	},
}

var fluxReadCmd = cli.Command{
	Name: "read",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "address", Value: 0x0C, Usage: "7-bit sensor address"},
	}, adapterFlags...),
	Action: func(c *cli.Context) error {
		ctx := snsctx.SetVerbose(context.Background(), c.Bool("verbose"))
		bus, closer, err := openBus(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		s := magnet.NewMLX90393(bus, magnet.WithAddress(byte(c.Int("address"))))
		flux, _, err := s.GetFlux(ctx)
		if err != nil {
			return console.Exit(1, "error getting flux read: %s", console.Red(err))
		}
		printFlux(flux)
		return nil
	},
}

var fluxWatchCmd = cli.Command{
	Name: "watch",
	Flags: append([]cli.Flag{
		&cli.IntFlag{Name: "address", Value: 0x0C, Usage: "7-bit sensor address"},
		&cli.DurationFlag{Name: "interval", Aliases: []string{"i"}, Value: 200 * time.Millisecond},
		&cli.BoolFlag{Name: "burst", Usage: "use the device's burst mode instead of single measurements"},
	}, adapterFlags...),
	Action: func(c *cli.Context) error {
		ctx, stop := signal.NotifyContext(snsctx.SetVerbose(context.Background(), c.Bool("verbose")), os.Interrupt)
		defer stop()
		bus, closer, err := openBus(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closeBus(closer)

		s := magnet.NewMLX90393(bus, magnet.WithAddress(byte(c.Int("address"))))
		if c.Bool("burst") {
			if err := s.StartBurst(ctx); err != nil {
				return console.Exit(1, "error starting burst mode: %s", console.Red(err))
			}
			defer func() {
				if err := s.Exit(context.Background()); err != nil {
					console.Errorf("error leaving burst mode: %s", console.Red(err))
				}
			}()
		}

		ticker := time.NewTicker(c.Duration("interval"))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			var flux magnet.Flux
			if c.Bool("burst") {
				flux, _, err = s.ReadMeasurement(ctx)
			} else {
				flux, _, err = s.GetFlux(ctx)
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				// a failed cycle is not fatal, the next one runs independently
				slog.Warn("flux read failed", "error", err)
				continue
			}
			printFlux(flux)
		}
	},
}

func printFlux(flux magnet.Flux) {
	console.Printf("%s X: %s | Y: %s | Z: %s | mag: %s\n",
		console.PictoMagnet,
		console.White(flux.X), console.White(flux.Y), console.White(flux.Z),
		console.Cyan(int(flux.Magnitude())))
}

func closeBus(closer func() error) {
	if closer == nil {
		return
	}
	if err := closer(); err != nil {
		console.Errorf("error closing bus: %s", console.Red(err))
	}
}
