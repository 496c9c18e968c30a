// Package follow steers the controlled entity along the recent path of
// another subject.
package follow

import "inputpipe/internal/geom"

// Point is one sampled position of the tracked subject.
type Point struct {
	Tick uint64
	Pos  geom.Vec2
}

// History is a fixed capacity ring of points, oldest first. Entries older
// than window ticks behind the newest are evicted on every push.
type History struct {
	buf    []Point
	start  int
	n      int
	window uint64
}

// NewHistory holds at most window ticks of samples.
func NewHistory(window int) *History {
	if window < 1 {
		window = 1
	}
	return &History{buf: make([]Point, window), window: uint64(window)}
}

func (h *History) Len() int { return h.n }
func (h *History) Cap() int { return len(h.buf) }

// At returns the i-th point, 0 being the oldest.
func (h *History) At(i int) Point {
	return h.buf[(h.start+i)%len(h.buf)]
}

// Newest returns the most recent point.
func (h *History) Newest() (Point, bool) {
	if h.n == 0 {
		return Point{}, false
	}
	return h.At(h.n - 1), true
}

func (h *History) Clear() {
	h.start = 0
	h.n = 0
}

// Push appends p and drops anything that fell out of the window.
func (h *History) Push(p Point) {
	if h.n == len(h.buf) {
		h.start = (h.start + 1) % len(h.buf)
		h.n--
	}
	h.buf[(h.start+h.n)%len(h.buf)] = p
	h.n++

	for h.n > 0 && p.Tick >= h.window && h.At(0).Tick <= p.Tick-h.window {
		h.start = (h.start + 1) % len(h.buf)
		h.n--
	}
}

// Nearest returns the index of the point closest to pos, the earliest on ties,
// or -1 when empty.
func (h *History) Nearest(pos geom.Vec2) int {
	best := -1
	bestDist := 0.0
	for i := 0; i < h.n; i++ {
		d := pos.Distance(h.At(i).Pos)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
