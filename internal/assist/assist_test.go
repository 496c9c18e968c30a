package assist

import (
	"testing"

	"inputpipe/internal/geom"
	"inputpipe/internal/input"
	"inputpipe/internal/world"
)

func TestBalance(t *testing.T) {
	tests := []struct {
		name    string
		dev     input.Device
		velX    float64
		want    int32
		applied bool
	}{
		{"slides right", input.Device{}, 3, -1, true},
		{"slides left", input.Device{}, -3, 1, true},
		{"settled", input.Device{}, 0.5, 0, true},
		{"key held wins", input.Device{Right: true}, 3, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := input.Command{Direction: 1}
			got := Balance(DefaultConfig(), &cmd, tt.dev, world.Self{Alive: true, Vel: geom.V(tt.velX, 0)})
			if got != tt.applied {
				t.Errorf("Expected applied=%v, got %v", tt.applied, got)
			}
			if cmd.Direction != tt.want {
				t.Errorf("Expected direction %d, got %d", tt.want, cmd.Direction)
			}
		})
	}
}

func TestStackTargetPicksSmallestGapBelow(t *testing.T) {
	self := world.Self{ID: 0, Alive: true, Pos: geom.V(100, 100)}
	subjects := []world.Subject{
		{ID: 1, Active: true, Pos: geom.V(120, 130)}, // below, dx 20
		{ID: 2, Active: true, Pos: geom.V(95, 140)},  // below, dx 5
		{ID: 3, Active: true, Pos: geom.V(101, 50)},  // above
		{ID: 4, Active: true, Pos: geom.V(200, 130)}, // out of scan range
		{ID: 5, Active: false, Pos: geom.V(100, 130)},
	}
	got, ok := StackTarget(DefaultConfig(), self, subjects)
	if !ok {
		t.Fatal("Expected a stack target")
	}
	if got.ID != 2 {
		t.Errorf("Expected subject 2, got %d", got.ID)
	}
}

func TestStackDirection(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name   string
		dx, vx float64
		want   int32
	}{
		{"stop zone", 0.2, 0.05, 0},
		{"dead zone", 1.5, 0.3, 0},
		{"move right", 20, 0, 1},
		{"move left", -20, 0, -1},
		{"brake before overshoot right", 4, 5, -1},
		{"brake before overshoot left", -4, -5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StackDirection(cfg, tt.dx, tt.vx); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestWiggle(t *testing.T) {
	both := input.Device{Left: true, Right: true}

	cmd := input.Command{}
	if !Wiggle(&cmd, both, 0) || cmd.Direction != 1 {
		t.Errorf("Expected initial wiggle to the right, got %d", cmd.Direction)
	}
	Wiggle(&cmd, both, 1)
	if cmd.Direction != -1 {
		t.Errorf("Expected -1 after 1, got %d", cmd.Direction)
	}
	cmd.Direction = 0
	if Wiggle(&cmd, input.Device{Left: true}, 1) {
		t.Error("Expected no wiggle with a single key")
	}
}
