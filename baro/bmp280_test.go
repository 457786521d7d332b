package baro

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/magbaro"
)

// MockI2CBus is a mock implementation of magbaro.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
	mu sync.Mutex
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	args := m.Called(ctx, address, buffer)
	if args.Get(0) != nil {
		if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
			copy(buffer, data)
		}
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// referenceCalibrationBlock is the reference coefficient set in its on-wire
// little-endian layout starting at register 0x88.
func referenceCalibrationBlock() []byte {
	return []byte{
		0x70, 0x6B, // T1 = 27504
		0x43, 0x67, // T2 = 26435
		0x18, 0xFC, // T3 = -1000
		0x7D, 0x8E, // P1 = 36477
		0x43, 0xD6, // P2 = -10685
		0xD0, 0x0B, // P3 = 3024
		0x27, 0x0B, // P4 = 2855
		0x8C, 0x00, // P5 = 140
		0xF9, 0xFF, // P6 = -7
		0x8C, 0x3C, // P7 = 15500
		0xF8, 0xC6, // P8 = -14600
		0x70, 0x17, // P9 = 6000
	}
}

// referenceDataFrame encodes adc_p = 415148 and adc_t = 519888 as the 6-byte
// block at register 0xF7.
func referenceDataFrame() []byte {
	return []byte{0x65, 0x5A, 0xC0, 0x7E, 0xED, 0x00}
}

func expectInit(bus *MockI2CBus) {
	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regChipID}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 1
	})).Return([]byte{chipID}, nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regCtrlMeas, defaultCtrlMeas}).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regConfig, defaultConfig}).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regCalib}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 24
	})).Return(referenceCalibrationBlock(), nil).Once()
}

func expectDataRead(bus *MockI2CBus, frame []byte, err error) {
	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regData}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 6
	})).Return(frame, err).Once()
}

func TestBMP280_InitParsesCalibration(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus)
	ctx := context.Background()

	expectInit(bus)
	assert.NoError(t, sensor.Init(ctx))

	cal, ok := sensor.Calibration()
	assert.True(t, ok)
	assert.Equal(t, referenceCalibration(), cal)

	bus.AssertExpectations(t)
}

func TestBMP280_ReadReferenceVector(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus)
	ctx := context.Background()

	expectInit(bus)
	assert.NoError(t, sensor.Init(ctx))

	expectDataRead(bus, referenceDataFrame(), nil)
	r, err := sensor.Read(ctx)
	assert.NoError(t, err)
	assert.InEpsilon(t, 25.08, r.Temperature, 0.001)
	assert.InEpsilon(t, 1006.5327, r.Pressure, 0.001)

	bus.AssertExpectations(t)
}

func TestBMP280_ReadBeforeInit(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus)

	// no expectations: the guard must reject before any bus traffic
	_, err := sensor.Read(context.Background())
	assert.ErrorIs(t, err, magbaro.ErrNotInitialized)

	bus.AssertExpectations(t)
}

func TestBMP280_InitErrorCases(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*MockI2CBus)
		check     func(*testing.T, error)
	}{
		{
			name: "chip id probe write fails",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regChipID}).
					Return(errors.New("i2c write failed")).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, magbaro.ErrDeviceUnresponsive)
			},
		},
		{
			name: "wrong chip id",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regChipID}).Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.Anything).
					Return([]byte{0x60}, nil).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnexpectedChipID)
			},
		},
		{
			name: "control register write fails",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regChipID}).Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.Anything).
					Return([]byte{chipID}, nil).Once()
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regCtrlMeas, defaultCtrlMeas}).
					Return(errors.New("i2c write failed")).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, magbaro.ErrDeviceUnresponsive)
			},
		},
		{
			name: "calibration block read fails",
			setupMock: func(bus *MockI2CBus) {
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regChipID}).Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.MatchedBy(func(buf []byte) bool {
					return len(buf) == 1
				})).Return([]byte{chipID}, nil).Once()
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regCtrlMeas, defaultCtrlMeas}).Return(nil).Once()
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regConfig, defaultConfig}).Return(nil).Once()
				bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regCalib}).Return(nil).Once()
				bus.On("ReadFromAddr", mock.Anything, byte(bmp280Address), mock.MatchedBy(func(buf []byte) bool {
					return len(buf) == 24
				})).Return(nil, errors.New("i2c read failed")).Once()
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, magbaro.ErrDeviceUnresponsive)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			sensor := NewBMP280(bus)
			ctx := context.Background()

			tt.setupMock(bus)

			err := sensor.Init(ctx)
			assert.Error(t, err)
			tt.check(t, err)

			// a failed init leaves the driver uninitialized
			_, err = sensor.Read(ctx)
			assert.ErrorIs(t, err, magbaro.ErrNotInitialized)

			bus.AssertExpectations(t)
		})
	}
}

func TestBMP280_ReadFailureKeepsDriverUsable(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus)
	ctx := context.Background()

	expectInit(bus)
	assert.NoError(t, sensor.Init(ctx))

	expectDataRead(bus, nil, errors.New("i2c read failed"))
	_, err := sensor.Read(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, err, magbaro.ErrSensorUnavailable)

	// calibration is retained; the next cycle succeeds
	expectDataRead(bus, referenceDataFrame(), nil)
	r, err := sensor.Read(ctx)
	assert.NoError(t, err)
	assert.InEpsilon(t, 25.08, r.Temperature, 0.001)

	bus.AssertExpectations(t)
}

func TestBMP280_ResetDropsCalibration(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus)
	ctx := context.Background()

	expectInit(bus)
	assert.NoError(t, sensor.Init(ctx))

	bus.On("WriteToAddr", mock.Anything, byte(bmp280Address), []byte{regReset, resetMagic}).Return(nil).Once()
	assert.NoError(t, sensor.Reset(ctx))

	_, err := sensor.Read(ctx)
	assert.ErrorIs(t, err, magbaro.ErrNotInitialized)

	bus.AssertExpectations(t)
}

func TestBMP280_CustomAddressAndSeaLevel(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBMP280(bus, WithAddress(0x77), WithSeaLevel(1006.5327))
	ctx := context.Background()

	bus.On("WriteToAddr", mock.Anything, byte(0x77), mock.Anything).Return(nil).Times(5)
	bus.On("ReadFromAddr", mock.Anything, byte(0x77), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 1
	})).Return([]byte{chipID}, nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x77), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 24
	})).Return(referenceCalibrationBlock(), nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(0x77), mock.MatchedBy(func(buf []byte) bool {
		return len(buf) == 6
	})).Return(referenceDataFrame(), nil).Once()

	assert.NoError(t, sensor.Init(ctx))
	r, err := sensor.Read(ctx)
	assert.NoError(t, err)
	// sea level pinned at the measured pressure puts the altitude at zero
	assert.InDelta(t, 0.0, r.Altitude, 0.001)

	bus.AssertExpectations(t)
}
