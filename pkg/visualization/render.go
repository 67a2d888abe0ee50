package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"bssplot/pkg/colors"
)

// Plot area margins in pixels.
const (
	marginLeft   = 70
	marginRight  = 20
	marginTop    = 40
	marginBottom = 55

	tickLength = 5
)

var gaussian = &draw.Kernel{
	Support: 2,
	At: func(t float64) float64 {
		return math.Exp(-2 * t * t)
	},
}

// Interpolator returns the resampling kernel for an interpolation name.
// An empty name means nearest neighbour.
func Interpolator(name string) (draw.Interpolator, error) {
	switch strings.ToLower(name) {
	case "", "nearest", "none":
		return draw.NearestNeighbor, nil
	case "bilinear":
		return draw.BiLinear, nil
	case "bicubic":
		return draw.CatmullRom, nil
	case "gaussian":
		return gaussian, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidInterpolation, name)
}

var (
	fontOnce sync.Once
	labelTTF *opentype.Font
	fontErr  error
)

// labelFace returns a new face for tick and title labels. Faces are not safe
// for concurrent use, so every render opens its own.
func labelFace() (font.Face, error) {
	fontOnce.Do(func() {
		labelTTF, fontErr = opentype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("error parsing label font: %w", fontErr)
	}
	return opentype.NewFace(labelTTF, &opentype.FaceOptions{
		Size:    12,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// transform maps data coordinates to pixel coordinates inside box.
type transform struct {
	box    image.Rectangle
	view   View
	kx, ky float64
}

func newTransform(box image.Rectangle, v View) transform {
	return transform{
		box:  box,
		view: v,
		kx:   float64(box.Dx()) / (v.X[1] - v.X[0]),
		ky:   float64(box.Dy()) / (v.Y[1] - v.Y[0]),
	}
}

func (t transform) apply(x, y float64) (float64, float64) {
	px := float64(t.box.Min.X) + (x-t.view.X[0])*t.kx
	py := float64(t.box.Min.Y) + (t.view.Y[1]-y)*t.ky
	return px, py
}

// plotBox returns the plotting rectangle for a w x h canvas.
func (a *Axes) plotBox(w, h int, v View) (image.Rectangle, error) {
	box := image.Rect(marginLeft, marginTop, w-marginRight, h-marginBottom)
	if box.Dx() <= 0 || box.Dy() <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d", ErrCanvasTooSmall, w, h)
	}
	if !a.EqualAspect {
		return box, nil
	}

	ux := math.Abs(v.X[1]-v.X[0]) / float64(box.Dx())
	uy := math.Abs(v.Y[1]-v.Y[0]) / float64(box.Dy())
	u := math.Max(ux, uy)
	if u == 0 || math.IsNaN(u) || math.IsInf(u, 0) {
		return box, nil
	}
	bw := int(math.Round(math.Abs(v.X[1]-v.X[0]) / u))
	bh := int(math.Round(math.Abs(v.Y[1]-v.Y[0]) / u))
	bw, bh = max(bw, 1), max(bh, 1)
	x0 := box.Min.X + (box.Dx()-bw)/2
	y0 := box.Min.Y + (box.Dy()-bh)/2
	return image.Rect(x0, y0, x0+bw, y0+bh), nil
}

// Render draws the axes into a new w x h image.
func (a *Axes) Render(w, h int) (*image.RGBA, error) {
	v := a.View()
	if v.X[0] == v.X[1] || v.Y[0] == v.Y[1] {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateView, v)
	}
	box, err := a.plotBox(w, h, v)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

	t := newTransform(box, v)
	for _, l := range a.layers {
		switch l := l.(type) {
		case *ImageLayer:
			if err := l.draw(dst, t); err != nil {
				return nil, err
			}
		case *LineLayer:
			l.draw(dst, t)
		}
	}

	if err := a.drawDecorations(dst, t); err != nil {
		return nil, err
	}

	a.Logger().Debug("axes rendered",
		zap.Int("width", w),
		zap.Int("height", h),
		zap.Int("layers", len(a.layers)),
		zap.Float64s("xlim", v.X[:]),
		zap.Float64s("ylim", v.Y[:]))
	return dst, nil
}

// rgba colors the grid through the layer's colormap and norm.
func (l *ImageLayer) rgba() *image.NRGBA {
	cmap := l.Colormap
	if cmap == nil {
		cmap, _ = colors.Lookup("gray")
	}
	norm := l.Norm
	if norm == nil {
		lo, hi, _ := l.Grid.MinMax()
		norm = colors.LinearNorm{VMin: lo, VMax: hi}
	}
	alpha := opacity(l.Alpha)

	img := image.NewNRGBA(image.Rect(0, 0, l.Grid.Cols, l.Grid.Rows))
	for r := 0; r < l.Grid.Rows; r++ {
		for c := 0; c < l.Grid.Cols; c++ {
			val := l.Grid.At(r, c)
			if math.IsNaN(val) {
				continue
			}
			col := cmap.At(norm.Normalize(val))
			col.A = uint8(math.Round(float64(col.A) * alpha))
			img.SetNRGBA(c, r, col)
		}
	}
	return img
}

func (l *ImageLayer) draw(dst *image.RGBA, t transform) error {
	interp, err := Interpolator(l.Interpolation)
	if err != nil {
		return err
	}
	e := l.Extent
	sx := (e.XMax - e.XMin) / float64(l.Grid.Cols) * t.kx
	sy := (e.YMax - e.YMin) / float64(l.Grid.Rows) * t.ky
	if sx == 0 || sy == 0 {
		return nil
	}
	tx := float64(t.box.Min.X) + (e.XMin-t.view.X[0])*t.kx
	ty := float64(t.box.Min.Y) + (t.view.Y[1]-e.YMax)*t.ky

	src := l.rgba()
	s2d := f64.Aff3{sx, 0, tx, 0, sy, ty}
	sub := dst.SubImage(t.box).(*image.RGBA)
	interp.Transform(sub, s2d, src, src.Bounds(), draw.Over, nil)
	return nil
}

func (l *LineLayer) draw(dst *image.RGBA, t transform) {
	if len(l.Points) < 2 {
		return
	}
	half := math.Max(l.Width, 1) / 2
	z := vector.NewRasterizer(t.box.Dx(), t.box.Dy())
	ox, oy := float64(t.box.Min.X), float64(t.box.Min.Y)

	drawn := false
	for i := 1; i < len(l.Points); i++ {
		p0, p1 := l.Points[i-1], l.Points[i]
		if math.IsNaN(p0.X) || math.IsNaN(p0.Y) || math.IsNaN(p1.X) || math.IsNaN(p1.Y) {
			continue
		}
		x0, y0 := t.apply(p0.X, p0.Y)
		x1, y1 := t.apply(p1.X, p1.Y)
		x0, y0, x1, y1 = x0-ox, y0-oy, x1-ox, y1-oy

		dx, dy := x1-x0, y1-y0
		n := math.Hypot(dx, dy)
		if n == 0 {
			dx, dy, n = 1, 0, 1
		}
		// Square caps so consecutive segments overlap at the joints.
		ux, uy := dx/n*half, dy/n*half
		nx, ny := -uy, ux
		x0, y0, x1, y1 = x0-ux, y0-uy, x1+ux, y1+uy

		z.MoveTo(float32(x0+nx), float32(y0+ny))
		z.LineTo(float32(x1+nx), float32(y1+ny))
		z.LineTo(float32(x1-nx), float32(y1-ny))
		z.LineTo(float32(x0-nx), float32(y0-ny))
		z.ClosePath()
		drawn = true
	}
	if !drawn {
		return
	}

	c := l.Color
	c.A = uint8(math.Round(float64(c.A) * opacity(l.Alpha)))
	z.Draw(dst, t.box, image.NewUniform(c), image.Point{})
}

func (a *Axes) drawDecorations(dst *image.RGBA, t transform) error {
	f, err := labelFace()
	if err != nil {
		return err
	}
	defer f.Close()
	box := t.box
	black := image.NewUniform(color.Black)

	// Frame.
	for _, r := range []image.Rectangle{
		image.Rect(box.Min.X-1, box.Min.Y-1, box.Max.X+1, box.Min.Y),
		image.Rect(box.Min.X-1, box.Max.Y, box.Max.X+1, box.Max.Y+1),
		image.Rect(box.Min.X-1, box.Min.Y, box.Min.X, box.Max.Y),
		image.Rect(box.Max.X, box.Min.Y, box.Max.X+1, box.Max.Y),
	} {
		draw.Draw(dst, r, black, image.Point{}, draw.Src)
	}

	d := &font.Drawer{Dst: dst, Src: black, Face: f}
	ascent := f.Metrics().Ascent.Ceil()

	for _, x := range niceTicks(t.view.X[0], t.view.X[1]) {
		px, _ := t.apply(x, t.view.Y[0])
		ix := int(math.Round(px))
		draw.Draw(dst, image.Rect(ix, box.Max.Y, ix+1, box.Max.Y+tickLength), black, image.Point{}, draw.Src)
		label := formatTick(x)
		width := font.MeasureString(f, label).Ceil()
		d.Dot = fixed.P(ix-width/2, box.Max.Y+tickLength+2+ascent)
		d.DrawString(label)
	}
	for _, y := range niceTicks(t.view.Y[0], t.view.Y[1]) {
		_, py := t.apply(t.view.X[0], y)
		iy := int(math.Round(py))
		draw.Draw(dst, image.Rect(box.Min.X-tickLength, iy, box.Min.X, iy+1), black, image.Point{}, draw.Src)
		label := formatTick(y)
		width := font.MeasureString(f, label).Ceil()
		d.Dot = fixed.P(box.Min.X-tickLength-3-width, iy+ascent/2)
		d.DrawString(label)
	}

	if a.Title != "" {
		width := font.MeasureString(f, a.Title).Ceil()
		d.Dot = fixed.P((box.Min.X+box.Max.X-width)/2, box.Min.Y-12)
		d.DrawString(a.Title)
	}
	if a.XLabel != "" {
		width := font.MeasureString(f, a.XLabel).Ceil()
		d.Dot = fixed.P((box.Min.X+box.Max.X-width)/2, box.Max.Y+tickLength+2*ascent+10)
		d.DrawString(a.XLabel)
	}
	if a.YLabel != "" {
		d.Dot = fixed.P(4, box.Min.Y-12+ascent/2)
		if a.Title != "" {
			d.Dot = fixed.P(4, box.Min.Y-2)
		}
		d.DrawString(a.YLabel)
	}
	return nil
}

// niceTicks returns round tick positions inside [a, b] in either order.
func niceTicks(a, b float64) []float64 {
	lo, hi := math.Min(a, b), math.Max(a, b)
	span := hi - lo
	if span <= 0 || math.IsInf(span, 0) || math.IsNaN(span) {
		return nil
	}
	raw := span / 5
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}

	var ticks []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		// Snap to the step grid so drift does not leak into labels.
		ticks = append(ticks, math.Round(v/step)*step)
	}
	return ticks
}

func formatTick(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// SavePNG writes img to filename as a PNG image.
func SavePNG(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("error encoding %s: %w", filename, err)
	}
	return nil
}
