// Package overlay renders a recorded macro path to an image for review.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/fogleman/gg"

	"inputpipe/internal/geom"
	"inputpipe/internal/macro"
)

const (
	// MaxSegment is the longest step drawn as a line. Longer steps are
	// teleports or respawns.
	MaxSegment = 300
	// MarkedFrames is how many trailing frames get a position marker.
	MarkedFrames = 1000
	MarkerSize   = 10
	TargetRadius = 23
	TargetStroke = 3
)

var (
	backgroundColor = color.RGBA{12, 12, 28, 255}
	pathColor       = color.RGBA{255, 0, 0, 255}
	markerColor     = color.RGBA{0, 255, 0, 255}
	targetColor     = color.RGBA{255, 0, 0, 255}
)

var ErrNoFrames = errors.New("overlay: no frames to render")

// Options controls the canvas. With Scale zero the path is fitted into the
// canvas; otherwise Origin is the world point drawn at the top-left corner.
type Options struct {
	Width   int
	Height  int
	Padding float64
	Scale   float64 // pixels per world unit
	Origin  geom.Vec2
	Target  *geom.Vec2
}

func DefaultOptions() Options {
	return Options{Width: 1280, Height: 720, Padding: 40}
}

// view maps world coordinates to pixels.
type view struct {
	origin geom.Vec2
	scale  float64
	offset geom.Vec2
}

func (v view) point(p geom.Vec2) (float64, float64) {
	return (p.X-v.origin.X)*v.scale + v.offset.X, (p.Y-v.origin.Y)*v.scale + v.offset.Y
}

func fit(frames []macro.Frame, opts Options) view {
	if opts.Scale > 0 {
		return view{origin: opts.Origin, scale: opts.Scale}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	extend := func(p geom.Vec2) {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	for _, f := range frames {
		extend(f.Pos())
	}
	if opts.Target != nil {
		extend(*opts.Target)
	}

	w := float64(opts.Width) - 2*opts.Padding
	h := float64(opts.Height) - 2*opts.Padding
	scale := 1.0
	if dx, dy := maxX-minX, maxY-minY; dx > 0 || dy > 0 {
		scale = math.Min(w/math.Max(dx, 1e-9), h/math.Max(dy, 1e-9))
	}
	// center the extents
	return view{
		origin: geom.V(minX, minY),
		scale:  scale,
		offset: geom.V(
			opts.Padding+(w-(maxX-minX)*scale)/2,
			opts.Padding+(h-(maxY-minY)*scale)/2,
		),
	}
}

// Render draws the path of frames: red segments between consecutive
// positions, green markers on the trailing frames and an optional target box.
func Render(frames []macro.Frame, opts Options) (image.Image, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("overlay: invalid canvas %dx%d", opts.Width, opts.Height)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	v := fit(frames, opts)

	dc.SetColor(backgroundColor)
	dc.DrawRectangle(0, 0, float64(opts.Width), float64(opts.Height))
	dc.Fill()

	drawPath(dc, v, frames)
	drawMarkers(dc, v, frames)
	if opts.Target != nil {
		drawTarget(dc, v, *opts.Target)
	}
	return dc.Image(), nil
}

// WritePNG renders frames and encodes the result as PNG.
func WritePNG(w io.Writer, frames []macro.Frame, opts Options) error {
	img, err := Render(frames, opts)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}

func drawPath(dc *gg.Context, v view, frames []macro.Frame) {
	dc.SetColor(pathColor)
	dc.SetLineWidth(2)
	for i := 1; i < len(frames); i++ {
		a, b := frames[i-1].Pos(), frames[i].Pos()
		if a.Distance(b) > MaxSegment {
			continue
		}
		x1, y1 := v.point(a)
		x2, y2 := v.point(b)
		dc.DrawLine(x1, y1, x2, y2)
		dc.Stroke()
	}
}

func drawMarkers(dc *gg.Context, v view, frames []macro.Frame) {
	dc.SetColor(markerColor)
	start := max(0, len(frames)-MarkedFrames)
	for _, f := range frames[start:] {
		x, y := v.point(f.Pos())
		dc.DrawRectangle(x-MarkerSize/2, y-MarkerSize/2, MarkerSize, MarkerSize)
		dc.Fill()
	}
}

func drawTarget(dc *gg.Context, v view, target geom.Vec2) {
	x, y := v.point(target)
	r := TargetRadius * v.scale
	dc.SetColor(targetColor)
	dc.SetLineWidth(TargetStroke)
	dc.DrawRectangle(x-r, y-r, 2*r, 2*r)
	dc.Stroke()
}
