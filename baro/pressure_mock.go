package baro

import (
	"context"
)

// ReadingBehaviorFunc defines the function signature for barometer behavior.
// It returns a compensated reading or an error.
type ReadingBehaviorFunc func(ctx context.Context) (Reading, error)

// MockBarometer is a mock implementation of a pressure/temperature sensor
// that uses a behavior function to produce results without requiring any
// hardware.
//
// Example usage:
//
//	sensor := NewMockBarometer(func(ctx context.Context) (Reading, error) {
//		return Reading{Temperature: 21.4, Pressure: 1003.2, Altitude: 84.1}, nil
//	})
type MockBarometer struct {
	behavior ReadingBehaviorFunc
}

func NewMockBarometer(behavior ReadingBehaviorFunc) *MockBarometer {
	return &MockBarometer{behavior: behavior}
}

// Read returns a reading by calling the behavior function.
func (m *MockBarometer) Read(ctx context.Context) (Reading, error) {
	return m.behavior(ctx)
}
