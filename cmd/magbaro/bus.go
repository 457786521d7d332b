package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/magbaro"
	"github.com/mklimuk/magbaro/adapter"
	"github.com/mklimuk/magbaro/i2c"
)

var adapterFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Value:   "mcp2221",
		Usage:   "bus adapter: mcp2221, generic or nanopi",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Value:   "/dev/i2c-1",
		Usage:   "i2c device path for the generic adapter",
	},
	&cli.IntFlag{
		Name:  "bus",
		Value: 0,
		Usage: "i2c bus number for the nanopi adapter",
	},
	&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
}

// openBus builds the transport selected on the command line; the returned
// closer is nil when the transport has nothing to release.
func openBus(c *cli.Context) (magbaro.I2CBus, func() error, error) {
	return openNamedBus(c.String("adapter"), c.String("device"), c.Int("bus"))
}

func openNamedBus(name, device string, busID int) (magbaro.I2CBus, func() error, error) {
	switch name {
	case "mcp2221":
		ad := adapter.NewMCP2221()
		if err := ad.Init(); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return ad, nil, nil
	case "generic":
		bus, err := i2c.NewGenericBus(device)
		if err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return bus, bus.Close, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := adapter.NewGobotBus(npi, busID)
		return bus, func() error {
			if err := bus.Close(); err != nil {
				return err
			}
			return npi.I2cBusAdaptor.Finalize()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", name)
	}
}
