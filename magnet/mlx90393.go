package magnet

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"sync"
	"time"

	"github.com/mklimuk/magbaro"
	"github.com/mklimuk/magbaro/codec"
)

// MLX90393 default 7-bit I2C address (0x19 on some breakout boards, selected
// by the A0/A1 straps).
const mlx90393Address = 0x0C

// Command opcodes (upper nibble); the lower nibble carries the zyxt selection.
const (
	cmdStartBurst       byte = 0x10
	cmdStartMeasurement byte = 0x30
	cmdReadMeasurement  byte = 0x40
	cmdExit             byte = 0x80
)

// Axis selection bits (zyxt nibble).
const (
	AxisT byte = 0x01
	AxisX byte = 0x02
	AxisY byte = 0x04
	AxisZ byte = 0x08

	// AxisMaskXYZ enables the three magnetic channels, temperature off.
	AxisMaskXYZ = AxisZ | AxisY | AxisX
)

// Status is the first byte of every measurement frame.
type Status byte

const (
	StatusBurstMode Status = 0x80
	StatusWOCMode   Status = 0x40
	StatusSMMode    Status = 0x20
	StatusError     Status = 0x10
	StatusSED       Status = 0x08
	StatusReset     Status = 0x04
)

var ErrNoMeasurement = fmt.Errorf("mlx90393: no measurement pending")
var ErrMeasurementFault = fmt.Errorf("mlx90393: device reported measurement error")

// Flux is a single magnetometer reading in raw signed counts. Conversion to
// µT depends on the configured gain and resolution and is left to the caller.
type Flux struct {
	X int16
	Y int16
	Z int16
}

// Magnitude returns the euclidean norm of the three axis counts.
func (f Flux) Magnitude() float64 {
	x, y, z := float64(f.X), float64(f.Y), float64(f.Z)
	return math.Sqrt(x*x + y*y + z*z)
}

type measMode int

const (
	modeIdle measMode = iota
	modeSingle
	modeBurst
)

type MLX90393Opts struct {
	Address   byte
	AxisMask  byte
	ConvDelay time.Duration
}

type MLX90393Opt func(*MLX90393Opts)

func WithAddress(address byte) MLX90393Opt {
	return func(o *MLX90393Opts) {
		o.Address = address
	}
}

// WithAxisMask selects which zyxt channels are measured. The mask is combined
// with both the start and the read command, so the frame layout always
// matches what was requested.
func WithAxisMask(mask byte) MLX90393Opt {
	return func(o *MLX90393Opts) {
		o.AxisMask = mask & 0x0F
	}
}

func WithConvDelay(delay time.Duration) MLX90393Opt {
	return func(o *MLX90393Opts) {
		o.ConvDelay = delay
	}
}

// MLX90393 represents a Melexis MLX90393 3-axis magnetic flux sensor.
// Typical usage:
//
//	s := NewMLX90393(bus)
//	flux, status, err := s.GetFlux(ctx)
//
// A measurement is a two-phase protocol: StartMeasurement arms the device,
// then after the conversion delay ReadMeasurement collects the frame. The
// driver schedules the delay asynchronously and ReadMeasurement waits for it,
// so a caller issuing start/read back to back still honors the settling
// interval.
type MLX90393 struct {
	mx        sync.Mutex
	delayDone chan struct{} // closed when the conversion delay has elapsed
	delayMx   sync.Mutex    // protects delayDone channel

	config MLX90393Opts

	transport magbaro.I2CBus
	mode      measMode
	buf       []byte
}

func NewMLX90393(transport magbaro.I2CBus, opts ...MLX90393Opt) *MLX90393 {
	config := MLX90393Opts{
		Address:  mlx90393Address,
		AxisMask: AxisMaskXYZ,
		// single measurement conversion takes 10-20ms at default filtering
		ConvDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	ch := make(chan struct{})
	close(ch)
	return &MLX90393{
		config:    config,
		transport: transport,
		buf:       make([]byte, frameLength(config.AxisMask)),
		delayDone: ch, // initially ready (closed channel)
	}
}

// frameLength is 1 status byte plus a 16-bit word per enabled channel.
func frameLength(mask byte) int {
	return 1 + 2*bits.OnesCount8(mask)
}

func (s *MLX90393) waitForDelay(ctx context.Context) error {
	s.delayMx.Lock()
	ch := s.delayDone
	s.delayMx.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *MLX90393) scheduleDelay(ctx context.Context, duration time.Duration) {
	s.delayMx.Lock()
	ch := make(chan struct{})
	s.delayDone = ch
	s.delayMx.Unlock()

	go func() {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		select {
		case <-timer.C:
			close(ch)
		case <-ctx.Done():
			close(ch)
		}
	}()
}

// StartMeasurement arms a single measurement for the configured channels.
// It returns without blocking; the conversion delay runs asynchronously and
// is awaited by ReadMeasurement. On a failed write the cycle is over: the
// caller must not proceed to ReadMeasurement.
func (s *MLX90393) StartMeasurement(ctx context.Context) error {
	if err := s.waitForDelay(ctx); err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{cmdStartMeasurement | s.config.AxisMask})
	if err != nil {
		s.mode = modeIdle
		return fmt.Errorf("mlx90393: start measurement failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	s.mode = modeSingle
	s.scheduleDelay(ctx, s.config.ConvDelay)
	return nil
}

// StartBurst puts the device in burst mode: after the first conversion delay
// ReadMeasurement may be called repeatedly without re-arming.
func (s *MLX90393) StartBurst(ctx context.Context) error {
	if err := s.waitForDelay(ctx); err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{cmdStartBurst | s.config.AxisMask})
	if err != nil {
		s.mode = modeIdle
		return fmt.Errorf("mlx90393: start burst failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	s.mode = modeBurst
	s.scheduleDelay(ctx, s.config.ConvDelay)
	return nil
}

// Exit leaves burst or single measurement mode and returns the device to idle.
func (s *MLX90393) Exit(ctx context.Context) error {
	if err := s.waitForDelay(ctx); err != nil {
		return err
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{cmdExit})
	if err != nil {
		return fmt.Errorf("mlx90393: exit failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	s.mode = modeIdle
	return nil
}

// ReadMeasurement collects the armed measurement frame. The frame is one
// status byte followed by a big-endian signed 16-bit word per enabled channel
// in zyxt priority order (T first when enabled, then X, Y, Z). A transport
// failure resets the driver to idle so the next cycle starts clean.
func (s *MLX90393) ReadMeasurement(ctx context.Context) (Flux, Status, error) {
	if err := s.waitForDelay(ctx); err != nil {
		return Flux{}, 0, err
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	if s.mode == modeIdle {
		return Flux{}, 0, ErrNoMeasurement
	}
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{cmdReadMeasurement | s.config.AxisMask})
	if err != nil {
		s.mode = modeIdle
		return Flux{}, 0, fmt.Errorf("mlx90393: read command failed: %w: %w", magbaro.ErrSensorUnavailable, err)
	}
	err = s.transport.ReadFromAddr(ctx, s.config.Address, s.buf)
	if err != nil {
		s.mode = modeIdle
		return Flux{}, 0, fmt.Errorf("mlx90393: measurement read failed: %w: %w", magbaro.ErrSensorUnavailable, err)
	}
	if s.mode == modeSingle {
		s.mode = modeIdle
	}

	status := Status(s.buf[0])
	if status&StatusError != 0 {
		return Flux{}, status, ErrMeasurementFault
	}

	var flux Flux
	next := 1
	if s.config.AxisMask&AxisT != 0 {
		// temperature channel occupies the first word; raw counts are not
		// converted here, skip over it
		next += 2
	}
	if s.config.AxisMask&AxisX != 0 {
		flux.X = codec.BEInt16(s.buf[next], s.buf[next+1])
		next += 2
	}
	if s.config.AxisMask&AxisY != 0 {
		flux.Y = codec.BEInt16(s.buf[next], s.buf[next+1])
		next += 2
	}
	if s.config.AxisMask&AxisZ != 0 {
		flux.Z = codec.BEInt16(s.buf[next], s.buf[next+1])
	}
	return flux, status, nil
}

// GetFlux runs a full single-measurement cycle: arm, settle, read.
func (s *MLX90393) GetFlux(ctx context.Context) (Flux, Status, error) {
	if err := s.StartMeasurement(ctx); err != nil {
		return Flux{}, 0, err
	}
	return s.ReadMeasurement(ctx)
}
