package magnet

import (
	"context"
)

// FluxBehaviorFunc defines the function signature for flux behavior.
// It returns a raw-count reading and frame status or an error.
type FluxBehaviorFunc func(ctx context.Context) (Flux, Status, error)

// MockFluxSensor is a mock implementation of a 3-axis flux sensor that uses a
// behavior function to produce results without requiring any hardware.
//
// Example usage:
//
//	// Static field
//	sensor := NewMockFluxSensor(func(ctx context.Context) (Flux, Status, error) {
//		return Flux{X: 120, Y: -40, Z: 890}, 0, nil
//	})
type MockFluxSensor struct {
	behavior FluxBehaviorFunc
}

func NewMockFluxSensor(behavior FluxBehaviorFunc) *MockFluxSensor {
	return &MockFluxSensor{behavior: behavior}
}

// GetFlux returns a reading by calling the behavior function.
func (m *MockFluxSensor) GetFlux(ctx context.Context) (Flux, Status, error) {
	return m.behavior(ctx)
}
