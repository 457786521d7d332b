package baro

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMockBarometer_StaticValue(t *testing.T) {
	s := NewMockBarometer(func(ctx context.Context) (Reading, error) {
		return Reading{Temperature: 21.4, Pressure: 1003.2, Altitude: 84.1}, nil
	})
	ctx := context.Background()
	r, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Temperature != 21.4 || r.Pressure != 1003.2 || r.Altitude != 84.1 {
		t.Errorf("unexpected reading: %+v", r)
	}
}

func TestMockBarometer_Dynamic(t *testing.T) {
	pressure := 990.0
	s := NewMockBarometer(func(ctx context.Context) (Reading, error) { return Reading{Pressure: pressure}, nil })
	ctx := context.Background()

	r1, _ := s.Read(ctx)
	if r1.Pressure != 990.0 {
		t.Errorf("expected 990.0, got %f", r1.Pressure)
	}
	pressure = 1020.5
	r2, _ := s.Read(ctx)
	if r2.Pressure != 1020.5 {
		t.Errorf("expected 1020.5, got %f", r2.Pressure)
	}
}

func TestMockBarometer_Error(t *testing.T) {
	wantErr := fmt.Errorf("sensor error")
	s := NewMockBarometer(func(ctx context.Context) (Reading, error) { return Reading{}, wantErr })
	ctx := context.Background()
	_, err := s.Read(ctx)
	if !errors.Is(err, wantErr) {
		t.Errorf("expected error, got %v", err)
	}
}
