package baro

import "math"

// seaLevelhPa is the standard-atmosphere reference used for the altitude
// estimate when no local reference is configured.
const seaLevelhPa = 1013.25

// compensate transforms raw 20-bit ADC codes into physical units using the
// Bosch floating-point formulas. It is a pure function so the arithmetic can
// be verified against the datasheet reference vectors without any bus I/O.
func compensate(adcT, adcP uint32, cal Calibration, seaLevel float64) Reading {
	tempC, tFine := compensateTemperature(adcT, cal)
	pressurePa := compensatePressure(adcP, tFine, cal)
	hPa := pressurePa / 100.0
	return Reading{
		Temperature: tempC,
		Pressure:    hPa,
		Altitude:    altitude(hPa, seaLevel),
	}
}

// compensateTemperature returns the temperature in °C and the t_fine
// intermediate that the pressure formula consumes. The operation order
// matches the datasheet exactly; reordering drifts the result.
func compensateTemperature(adcT uint32, cal Calibration) (tempC, tFine float64) {
	t := float64(adcT)
	var1 := (t/16384.0 - float64(cal.T1)/1024.0) * float64(cal.T2)
	var2 := (t/131072.0 - float64(cal.T1)/8192.0) * (t/131072.0 - float64(cal.T1)/8192.0) * float64(cal.T3)
	tFine = var1 + var2
	return tFine / 5120.0, tFine
}

// compensatePressure returns the pressure in Pa. The var1 == 0 case is a
// documented degenerate input for which the datasheet prescribes 0; the guard
// keeps NaN/Inf from ever leaving the engine.
func compensatePressure(adcP uint32, tFine float64, cal Calibration) float64 {
	var1 := tFine/2.0 - 64000.0
	var2 := var1 * var1 * float64(cal.P6) / 32768.0
	var2 += var1 * float64(cal.P5) * 2.0
	var2 = var2/4.0 + float64(cal.P4)*65536.0
	var1 = (float64(cal.P3)*var1*var1/524288.0 + float64(cal.P2)*var1) / 524288.0
	var1 = (1.0 + var1/32768.0) * float64(cal.P1)
	if var1 == 0 {
		return 0.0
	}
	p := 1048576.0 - float64(adcP)
	p = (p - var2/4096.0) * 6250.0 / var1
	var1 = float64(cal.P9) * p * p / 2147483648.0
	var2 = p * float64(cal.P8) / 32768.0
	return p + (var1+var2+float64(cal.P7))/16.0
}

// altitude estimates height above the seaLevel reference (hPa) using the
// barometric formula.
func altitude(hPa, seaLevel float64) float64 {
	return 44330.0 * (1.0 - math.Pow(hPa/seaLevel, 0.1903))
}
