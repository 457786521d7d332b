package baro

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// referenceCalibration is the coefficient set from the Bosch datasheet
// calculation example.
func referenceCalibration() Calibration {
	return Calibration{
		T1: 27504, T2: 26435, T3: -1000,
		P1: 36477, P2: -10685, P3: 3024,
		P4: 2855, P5: 140, P6: -7,
		P7: 15500, P8: -14600, P9: 6000,
	}
}

func TestCompensate_ReferenceVector(t *testing.T) {
	r := compensate(519888, 415148, referenceCalibration(), seaLevelhPa)

	assert.InEpsilon(t, 25.08, r.Temperature, 0.001)
	assert.InEpsilon(t, 1006.5327, r.Pressure, 0.001)
	assert.InEpsilon(t, 56.08, r.Altitude, 0.001)
}

func TestCompensateTemperature_TFineThreading(t *testing.T) {
	tempC, tFine := compensateTemperature(519888, referenceCalibration())
	assert.InEpsilon(t, 25.082478, tempC, 1e-6)
	assert.InEpsilon(t, 128422.287, tFine, 1e-6)
	// the same t_fine must feed the pressure formula
	assert.InEpsilon(t, 100653.267, compensatePressure(415148, tFine, referenceCalibration()), 1e-6)
}

func TestCompensatePressure_DegenerateVar1(t *testing.T) {
	// P1 = 0 forces var1 to exactly zero
	cal := referenceCalibration()
	cal.P1 = 0

	p := compensatePressure(415148, 128422.287, cal)
	assert.Equal(t, 0.0, p)

	r := compensate(519888, 415148, cal, seaLevelhPa)
	assert.Equal(t, 0.0, r.Pressure)
	assert.False(t, math.IsNaN(r.Temperature))
	assert.False(t, math.IsInf(r.Altitude, 0), "degenerate pressure must not leak Inf through the altitude term")
}

func TestCompensate_NoNaNAcrossAdcRange(t *testing.T) {
	cal := referenceCalibration()
	for _, adcT := range []uint32{0, 1, 1 << 10, 519888, 1<<20 - 1} {
		for _, adcP := range []uint32{0, 1, 415148, 1<<20 - 1} {
			r := compensate(adcT, adcP, cal, seaLevelhPa)
			assert.False(t, math.IsNaN(r.Temperature) || math.IsInf(r.Temperature, 0))
			assert.False(t, math.IsNaN(r.Pressure) || math.IsInf(r.Pressure, 0))
		}
	}
}

func TestAltitude(t *testing.T) {
	assert.Equal(t, 0.0, altitude(seaLevelhPa, seaLevelhPa))
	// pressure drops with height
	assert.Greater(t, altitude(900, seaLevelhPa), altitude(1000, seaLevelhPa))
	// a custom reference shifts the zero point
	assert.Equal(t, 0.0, altitude(990, 990))
}
