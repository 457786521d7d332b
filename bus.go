package magbaro

import (
	"context"
	"fmt"
)

var ErrBusBusy = fmt.Errorf("I2C engine is busy (command not completed)")

// Shared driver error kinds. Drivers wrap these with fmt.Errorf("...: %w", ...)
// so callers can branch with errors.Is regardless of which sensor failed.
var (
	// ErrDeviceUnresponsive means a command write failed; the poll cycle
	// must not proceed to the read phase.
	ErrDeviceUnresponsive = fmt.Errorf("device unresponsive")
	// ErrSensorUnavailable means a measurement read failed; the cycle's
	// reading is lost but the driver stays usable for the next cycle.
	ErrSensorUnavailable = fmt.Errorf("sensor unavailable")
	// ErrNotInitialized means a read was attempted before the driver's
	// initialization sequence completed successfully.
	ErrNotInitialized = fmt.Errorf("driver not initialized")
)

type BusReader interface {
	Read(ctx context.Context, buffer []byte) error
}

type BusWriter interface {
	Write(ctx context.Context, buffer []byte) error
}

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

// I2CBus is an addressed transport against a 7-bit device address. A block
// read is a command write followed by ReadFromAddr with a buffer sized to the
// expected frame; implementations must fill the buffer completely or fail
// (callers never see a short frame). Implementations serialize transactions
// internally so two drivers can share one physical bus.
type I2CBus interface {
	AddressableReader
	AddressableWriter
}

type I2CDevice interface {
	BusReader
	BusWriter
}
