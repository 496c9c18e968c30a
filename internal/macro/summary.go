package macro

import (
	"math"
	"time"

	"inputpipe/internal/geom"
)

// Summary describes a recording for display.
type Summary struct {
	Frames      int       `json:"frames"`
	Duration    string    `json:"duration"`
	Min         geom.Vec2 `json:"min"`
	Max         geom.Vec2 `json:"max"`
	Distance    float64   `json:"distance"` // path length, teleports excluded
	FirePresses int       `json:"firePresses"`
	JumpPresses int       `json:"jumpPresses"`
}

// teleport is the step length above which consecutive positions are not
// counted as travel.
const teleport = 300

// Summarize walks frames once. tickRate converts the frame count to time.
func Summarize(frames []Frame, tickRate int) Summary {
	s := Summary{Frames: len(frames)}
	if tickRate > 0 {
		s.Duration = (time.Duration(len(frames)) * time.Second / time.Duration(tickRate)).String()
	}
	if len(frames) == 0 {
		return s
	}

	s.Min = geom.V(math.Inf(1), math.Inf(1))
	s.Max = geom.V(math.Inf(-1), math.Inf(-1))
	for i, f := range frames {
		p := f.Pos()
		s.Min = geom.V(math.Min(s.Min.X, p.X), math.Min(s.Min.Y, p.Y))
		s.Max = geom.V(math.Max(s.Max.X, p.X), math.Max(s.Max.Y, p.Y))

		if i == 0 {
			continue
		}
		prev := frames[i-1]
		if d := prev.Pos().Distance(p); d <= teleport {
			s.Distance += d
		}
		// the counter goes odd on press
		if f.Fire != prev.Fire && f.Fire&1 == 1 {
			s.FirePresses++
		}
		if f.Jump != 0 && prev.Jump == 0 {
			s.JumpPresses++
		}
	}
	return s
}
