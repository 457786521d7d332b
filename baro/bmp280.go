package baro

import (
	"context"
	"fmt"
	"sync"

	"github.com/mklimuk/magbaro"
	"github.com/mklimuk/magbaro/codec"
)

// BMP280 default 7-bit I2C address; 0x77 when SDO is pulled high.
const bmp280Address = 0x76

// Register map (per datasheet)
const (
	regCalib    byte = 0x88 // 24-byte factory calibration block
	regChipID   byte = 0xD0
	regReset    byte = 0xE0
	regCtrlMeas byte = 0xF4
	regConfig   byte = 0xF5
	regData     byte = 0xF7 // press msb/lsb/xlsb, temp msb/lsb/xlsb
)

const (
	chipID     byte = 0x58
	resetMagic byte = 0xB6

	// normal mode, x1 temperature / x4 pressure oversampling
	defaultCtrlMeas byte = 0x27
	// filter x16, 500ms standby
	defaultConfig byte = 0xA0
)

var ErrUnexpectedChipID = fmt.Errorf("bmp280: unexpected chip id")

// Calibration holds the 12 factory coefficients read from the calibration
// block. T1 and P1 are unsigned, everything else is signed; all fields are
// little-endian on the wire.
type Calibration struct {
	T1         uint16
	T2, T3     int16
	P1         uint16
	P2, P3, P4 int16
	P5, P6, P7 int16
	P8, P9     int16
}

// parseCalibration decodes the 24-byte calibration block. Field offsets are
// fixed by the register map starting at 0x88.
func parseCalibration(raw []byte) Calibration {
	return Calibration{
		T1: codec.LEUint16(raw[0], raw[1]),
		T2: codec.LEInt16(raw[2], raw[3]),
		T3: codec.LEInt16(raw[4], raw[5]),
		P1: codec.LEUint16(raw[6], raw[7]),
		P2: codec.LEInt16(raw[8], raw[9]),
		P3: codec.LEInt16(raw[10], raw[11]),
		P4: codec.LEInt16(raw[12], raw[13]),
		P5: codec.LEInt16(raw[14], raw[15]),
		P6: codec.LEInt16(raw[16], raw[17]),
		P7: codec.LEInt16(raw[18], raw[19]),
		P8: codec.LEInt16(raw[20], raw[21]),
		P9: codec.LEInt16(raw[22], raw[23]),
	}
}

// Reading is a fully compensated measurement.
type Reading struct {
	Temperature float64 // °C
	Pressure    float64 // hPa
	Altitude    float64 // m, relative to the configured sea-level reference
}

type BMP280Opts struct {
	Address  byte
	CtrlMeas byte
	Config   byte
	SeaLevel float64 // hPa
}

type BMP280Opt func(*BMP280Opts)

func WithAddress(address byte) BMP280Opt {
	return func(o *BMP280Opts) {
		o.Address = address
	}
}

// WithCtrlMeas overrides the oversampling/power-mode byte written to 0xF4.
func WithCtrlMeas(value byte) BMP280Opt {
	return func(o *BMP280Opts) {
		o.CtrlMeas = value
	}
}

// WithConfig overrides the filter/standby byte written to 0xF5.
func WithConfig(value byte) BMP280Opt {
	return func(o *BMP280Opts) {
		o.Config = value
	}
}

// WithSeaLevel sets the sea-level pressure reference (hPa) used for the
// altitude estimate.
func WithSeaLevel(hPa float64) BMP280Opt {
	return func(o *BMP280Opts) {
		o.SeaLevel = hPa
	}
}

// BMP280 represents a Bosch BMP280 barometric pressure/temperature sensor.
// Typical usage:
//
//	s := NewBMP280(bus)
//	if err := s.Init(ctx); err != nil { ... }
//	r, err := s.Read(ctx)
//
// Init must succeed before the first Read: compensating raw codes against a
// zeroed calibration set is undefined, so Read rejects with ErrNotInitialized
// until the calibration block has been loaded.
type BMP280 struct {
	mx sync.Mutex

	config BMP280Opts

	transport magbaro.I2CBus
	calib     *Calibration
	buf       []byte
}

func NewBMP280(transport magbaro.I2CBus, opts ...BMP280Opt) *BMP280 {
	config := BMP280Opts{
		Address:  bmp280Address,
		CtrlMeas: defaultCtrlMeas,
		Config:   defaultConfig,
		SeaLevel: seaLevelhPa,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &BMP280{
		config:    config,
		transport: transport,
		buf:       make([]byte, 24),
	}
}

// readRegister performs a register-addressed block read as a write/read pair.
// The caller must hold s.mx so the pair is not interleaved with another
// transaction on a shared bus.
func (s *BMP280) readRegister(ctx context.Context, reg byte, buf []byte) error {
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{reg})
	if err != nil {
		return fmt.Errorf("write reg %#x failed: %w", reg, err)
	}
	err = s.transport.ReadFromAddr(ctx, s.config.Address, buf)
	if err != nil {
		return fmt.Errorf("read reg %#x failed: %w", reg, err)
	}
	return nil
}

// Init probes the chip, configures oversampling and filtering and loads the
// factory calibration block. It is idempotent; re-running re-reads the
// calibration. On any failure the driver stays (or becomes) uninitialized.
func (s *BMP280) Init(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.calib = nil

	id := s.buf[:1]
	err := s.readRegister(ctx, regChipID, id)
	if err != nil {
		return fmt.Errorf("bmp280: chip id probe failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	if id[0] != chipID {
		return fmt.Errorf("%w: expected %#x, got %#x", ErrUnexpectedChipID, chipID, id[0])
	}
	err = s.transport.WriteToAddr(ctx, s.config.Address, []byte{regCtrlMeas, s.config.CtrlMeas})
	if err != nil {
		return fmt.Errorf("bmp280: control register write failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	err = s.transport.WriteToAddr(ctx, s.config.Address, []byte{regConfig, s.config.Config})
	if err != nil {
		return fmt.Errorf("bmp280: config register write failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	err = s.readRegister(ctx, regCalib, s.buf[:24])
	if err != nil {
		return fmt.Errorf("bmp280: calibration load failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	calib := parseCalibration(s.buf[:24])
	s.calib = &calib
	return nil
}

// Reset issues a soft reset and drops the driver back to uninitialized; Init
// must run again before the next Read.
func (s *BMP280) Reset(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	err := s.transport.WriteToAddr(ctx, s.config.Address, []byte{regReset, resetMagic})
	if err != nil {
		return fmt.Errorf("bmp280: reset write failed: %w: %w", magbaro.ErrDeviceUnresponsive, err)
	}
	s.calib = nil
	return nil
}

// Calibration returns the loaded coefficient set; ok is false before a
// successful Init.
func (s *BMP280) Calibration() (Calibration, bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.calib == nil {
		return Calibration{}, false
	}
	return *s.calib, true
}

// Read collects the 6-byte data block in one transaction and compensates it
// into physical units. A transport failure is non-fatal: the reading is lost
// but the driver stays initialized and usable for the next cycle.
func (s *BMP280) Read(ctx context.Context) (Reading, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.calib == nil {
		return Reading{}, fmt.Errorf("bmp280: %w", magbaro.ErrNotInitialized)
	}
	frame := s.buf[:6]
	err := s.readRegister(ctx, regData, frame)
	if err != nil {
		return Reading{}, fmt.Errorf("bmp280: data read failed: %w: %w", magbaro.ErrSensorUnavailable, err)
	}
	adcP := codec.U20FromTriplet(frame[0], frame[1], frame[2])
	adcT := codec.U20FromTriplet(frame[3], frame[4], frame[5])
	return compensate(adcT, adcP, *s.calib, s.config.SeaLevel), nil
}
