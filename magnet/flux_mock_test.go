package magnet

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMockFluxSensor_StaticValue(t *testing.T) {
	s := NewMockFluxSensor(func(ctx context.Context) (Flux, Status, error) {
		return Flux{X: 120, Y: -40, Z: 890}, StatusSMMode, nil
	})
	ctx := context.Background()
	flux, status, err := s.GetFlux(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if flux.X != 120 || flux.Y != -40 || flux.Z != 890 {
		t.Errorf("expected {120 -40 890}, got %+v", flux)
	}
	if status != StatusSMMode {
		t.Errorf("expected status %#x, got %#x", StatusSMMode, status)
	}
}

func TestMockFluxSensor_Dynamic(t *testing.T) {
	field := Flux{X: 10}
	s := NewMockFluxSensor(func(ctx context.Context) (Flux, Status, error) { return field, 0, nil })
	ctx := context.Background()

	f1, _, _ := s.GetFlux(ctx)
	if f1.X != 10 {
		t.Errorf("expected 10, got %d", f1.X)
	}
	field.X = -200
	f2, _, _ := s.GetFlux(ctx)
	if f2.X != -200 {
		t.Errorf("expected -200, got %d", f2.X)
	}
}

func TestMockFluxSensor_Error(t *testing.T) {
	wantErr := fmt.Errorf("sensor error")
	s := NewMockFluxSensor(func(ctx context.Context) (Flux, Status, error) { return Flux{}, 0, wantErr })
	ctx := context.Background()
	_, _, err := s.GetFlux(ctx)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected error, got %v", err)
	}
}
