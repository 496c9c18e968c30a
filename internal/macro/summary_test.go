package macro

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inputpipe/internal/geom"
)

func TestSummarize(t *testing.T) {
	frames := []Frame{
		{PosX: 0, PosY: 0, Fire: 0},
		{PosX: 3, PosY: 4, Fire: 1, Jump: 1},
		{PosX: 6, PosY: 8, Fire: 2, Jump: 1},
		{PosX: 906, PosY: 8, Fire: 3},
		{PosX: 906, PosY: -2, Fire: 3, Jump: 1},
	}

	s := Summarize(frames, 50)
	assert.Equal(t, 5, s.Frames)
	assert.Equal(t, "100ms", s.Duration)
	assert.Equal(t, geom.V(0, -2), s.Min)
	assert.Equal(t, geom.V(906, 8), s.Max)
	assert.InDelta(t, 20, s.Distance, 1e-4)
	assert.Equal(t, 2, s.FirePresses)
	assert.Equal(t, 2, s.JumpPresses)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 0)
	assert.Equal(t, Summary{}, s)
}
