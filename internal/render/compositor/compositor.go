// Package compositor draws the circular minimap onto a gg context.
package compositor

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/f64"

	"dashmap.ai/internal/sim/raster"
	"dashmap.ai/internal/sim/tile"
	"dashmap.ai/internal/sim/tuning"
)

var ErrNotReady = errors.New("compositor: no map window yet")

type Style struct {
	Radius        int
	Border        float64
	LabelInset    float64
	Margin        float64
	CoordsOffset  float64
	FontSize      float64
	HeadingBase   float64
	HeadingHeight float64

	Text    gg.RGBA
	Edge    gg.RGBA
	Heading gg.RGBA
}

func StyleFrom(t tuning.RenderTuning) Style {
	return Style{
		Radius:        t.CircleRadius,
		Border:        float64(t.BorderThickness),
		LabelInset:    float64(t.LabelInset),
		Margin:        float64(t.Margin),
		CoordsOffset:  float64(t.CoordsOffset),
		FontSize:      t.FontSize,
		HeadingBase:   t.HeadingBase,
		HeadingHeight: t.HeadingHeight,
		Text:          gg.Hex(t.TextColor),
		Edge:          gg.Hex(t.BorderColor),
		Heading:       gg.Hex(t.HeadingColor),
	}
}

// Frame is what one draw needs from the map and the observer. Origin is the
// window origin tile; X and Z are the observer's exact world position.
type Frame struct {
	Raster  *raster.Buffer
	Origin  tile.Coord
	X, Z    float64
	Heading float64 // degrees
}

// Compositor owns the font and the scratch layer. It is used from a single
// render goroutine.
type Compositor struct {
	style Style
	font  *text.FontSource
	face  text.Face

	layer *image.RGBA
	mask  *image.Alpha
}

func New(style Style) (*Compositor, error) {
	if style.Radius <= 0 {
		return nil, fmt.Errorf("compositor: radius must be positive, got %d", style.Radius)
	}
	src, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("compositor: font: %w", err)
	}
	d := 2 * style.Radius
	return &Compositor{
		style: style,
		font:  src,
		face:  src.Face(style.FontSize),
		layer: image.NewRGBA(image.Rect(0, 0, d, d)),
		mask:  circleMask(style.Radius),
	}, nil
}

func (c *Compositor) Close() error {
	return c.font.Close()
}

func (c *Compositor) Style() Style { return c.style }

// Placement is the circle center for a canvas of the given width: the top
// right corner, Margin away from both edges.
func (c *Compositor) Placement(width int) (cx, cy float64) {
	r := float64(c.style.Radius)
	return float64(width) - r - c.style.Margin, c.style.Margin + r
}

// Render draws one frame centered at (cx, cy). cx and cy should be whole
// pixels so the map layer lands on the pixel grid.
func (c *Compositor) Render(dc *gg.Context, f Frame, cx, cy float64) error {
	if f.Raster == nil {
		return ErrNotReady
	}
	r := float64(c.style.Radius)

	dc.DrawCircle(cx, cy, r+c.style.Border)
	setColor(dc, c.style.Edge)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("compositor: border: %w", err)
	}

	c.drawLayer(f)
	dc.DrawImageEx(gg.ImageBufFromImage(c.layer), gg.DrawImageOptions{
		X:             cx - r,
		Y:             cy - r,
		Interpolation: gg.InterpNearest,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})

	dc.SetFont(c.face)
	setColor(dc, c.style.Text)
	lr := r - c.style.LabelInset
	for _, l := range labels(f.Heading) {
		rad := l.angle * math.Pi / 180
		dc.DrawStringAnchored(l.text, cx+lr*math.Cos(rad), cy+lr*math.Sin(rad), 0.5, 0.5)
	}

	b, h := c.style.HeadingBase, c.style.HeadingHeight
	dc.MoveTo(cx, cy-h/2)
	dc.LineTo(cx+b/2, cy+h/2)
	dc.LineTo(cx-b/2, cy+h/2)
	dc.ClosePath()
	setColor(dc, c.style.Heading)
	if err := dc.Fill(); err != nil {
		return fmt.Errorf("compositor: heading: %w", err)
	}

	setColor(dc, c.style.Text)
	dc.DrawStringAnchored(fmt.Sprintf("X: %.2f Z: %.2f", f.X, f.Z), cx, cy+r+c.style.CoordsOffset, 0.5, 1)
	return nil
}

// drawLayer resamples the raster into the circle layer, rotated by
// 180-heading about the observer, who lands on the layer center.
func (c *Compositor) drawLayer(f Frame) {
	clear(c.layer.Pix)
	r := float64(c.style.Radius)
	ox := f.X - float64(f.Origin.MinBlockX())
	oz := f.Z - float64(f.Origin.MinBlockZ())

	theta := (180 - f.Heading) * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	s2d := f64.Aff3{
		cos, -sin, r - (cos*ox - sin*oz),
		sin, cos, r - (sin*ox + cos*oz),
	}
	f.Raster.View(func(img *image.RGBA) {
		draw.NearestNeighbor.Transform(c.layer, s2d, img, img.Bounds(), draw.Src, &draw.Options{
			DstMask:  c.mask,
			DstMaskP: image.Point{},
		})
	})
}

type label struct {
	text  string
	angle float64
}

// labels places the compass letters; W sits at -heading and the rest follow
// every 90 degrees.
func labels(heading float64) []label {
	return []label{
		{"N", -heading + 90},
		{"E", -heading + 180},
		{"S", -heading + 270},
		{"W", -heading},
	}
}

// circleMask is opaque for pixels whose center lies within radius of the
// layer center.
func circleMask(radius int) *image.Alpha {
	d := 2 * radius
	m := image.NewAlpha(image.Rect(0, 0, d, d))
	r := float64(radius)
	for y := 0; y < d; y++ {
		for x := 0; x < d; x++ {
			dx := float64(x) + 0.5 - r
			dy := float64(y) + 0.5 - r
			if dx*dx+dy*dy <= r*r {
				m.SetAlpha(x, y, color.Alpha{A: 0xFF})
			}
		}
	}
	return m
}

func setColor(dc *gg.Context, c gg.RGBA) {
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}
