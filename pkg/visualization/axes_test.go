package visualization

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"bssplot/internal/models"
)

// Canvas used by the rendering tests: the plotting box is (70,40)-(270,240).
const (
	testWidth  = 290
	testHeight = 295
)

func gridOf(rows, cols int, vals ...float64) *models.Grid {
	g := models.NewGrid(rows, cols)
	copy(g.Data, vals)
	return g
}

func rgbaAt(img *image.RGBA, x, y int) color.RGBA {
	return img.RGBAAt(x, y)
}

func TestInterpolator(t *testing.T) {
	for _, name := range []string{"", "nearest", "none", "bilinear", "bicubic", "gaussian", "Gaussian"} {
		if _, err := Interpolator(name); err != nil {
			t.Errorf("Interpolator(%q) failed: %v", name, err)
		}
	}
	if _, err := Interpolator("lanczos7"); !errors.Is(err, ErrInvalidInterpolation) {
		t.Errorf("Expected ErrInvalidInterpolation, got %v", err)
	}
}

func TestImshowValidation(t *testing.T) {
	ax := NewAxes()
	if _, err := ax.Imshow(ImageLayer{}); !errors.Is(err, ErrInvalidLayer) {
		t.Errorf("Expected ErrInvalidLayer for a missing grid, got %v", err)
	}
	_, err := ax.Imshow(ImageLayer{Grid: gridOf(2, 2), Interpolation: "sinc9"})
	if !errors.Is(err, ErrInvalidInterpolation) {
		t.Errorf("Expected ErrInvalidInterpolation, got %v", err)
	}
	if len(ax.Images()) != 0 {
		t.Errorf("Rejected layers must not be added, got %d", len(ax.Images()))
	}
}

func TestViewFit(t *testing.T) {
	flipped := View{X: [2]float64{5, -5}, Y: [2]float64{0, 1}}
	got := flipped.Fit(models.Extent{XMin: -2, XMax: 3, YMin: 4, YMax: -1})
	want := View{X: [2]float64{3, -2}, Y: [2]float64{-1, 4}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fit mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoView(t *testing.T) {
	ax := NewAxes()
	if diff := cmp.Diff(View{X: [2]float64{0, 1}, Y: [2]float64{0, 1}}, ax.View()); diff != "" {
		t.Errorf("Empty axes view mismatch (-want +got):\n%s", diff)
	}

	// An image whose x axis runs right to left keeps that orientation.
	if _, err := ax.Imshow(ImageLayer{
		Grid:   gridOf(2, 2),
		Extent: models.Extent{XMin: 8, XMax: -10, YMin: -4, YMax: 6},
	}); err != nil {
		t.Fatal(err)
	}
	ax.Plot(LineLayer{Points: []models.Point{{X: 0, Y: 0}, {X: 12, Y: math.NaN()}, {X: 1, Y: 9}}})

	want := View{X: [2]float64{8, -10}, Y: [2]float64{-4, 9}}
	if diff := cmp.Diff(want, ax.View()); diff != "" {
		t.Errorf("Auto view mismatch (-want +got):\n%s", diff)
	}
}

func TestAutoViewDegenerate(t *testing.T) {
	ax := NewAxes()
	ax.Plot(LineLayer{Points: []models.Point{{X: 0, Y: 1}, {X: 2, Y: 1}}})
	want := View{X: [2]float64{0, 2}, Y: [2]float64{0.5, 1.5}}
	if diff := cmp.Diff(want, ax.View()); diff != "" {
		t.Errorf("Degenerate view mismatch (-want +got):\n%s", diff)
	}
}

func TestSetLimits(t *testing.T) {
	ax := NewAxes()
	ax.Plot(LineLayer{Points: []models.Point{{X: 0, Y: 0}, {X: 4, Y: 2}}})

	ax.SetXLim(3, 1)
	want := View{X: [2]float64{3, 1}, Y: [2]float64{0, 2}}
	if diff := cmp.Diff(want, ax.View()); diff != "" {
		t.Errorf("SetXLim mismatch (-want +got):\n%s", diff)
	}
	ax.SetYLim(-1, 5)
	want.Y = [2]float64{-1, 5}
	if diff := cmp.Diff(want, ax.View()); diff != "" {
		t.Errorf("SetYLim mismatch (-want +got):\n%s", diff)
	}

	ax.ResetView()
	want = View{X: [2]float64{0, 4}, Y: [2]float64{0, 2}}
	if diff := cmp.Diff(want, ax.View()); diff != "" {
		t.Errorf("ResetView mismatch (-want +got):\n%s", diff)
	}
}

// TestRenderImagePlacement checks that row 0 lands at the top and column 0
// at the left, and that flipping the view mirrors the image.
func TestRenderImagePlacement(t *testing.T) {
	ax := NewAxes(WithLogger(zaptest.NewLogger(t)))
	_, err := ax.Imshow(ImageLayer{
		Grid:          gridOf(2, 2, 1, 0, 0, 0),
		Extent:        models.Extent{XMin: 0, XMax: 2, YMin: 0, YMax: 2},
		Interpolation: "nearest",
	})
	if err != nil {
		t.Fatal(err)
	}

	img, err := ax.Render(testWidth, testHeight)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != testWidth || b.Dy() != testHeight {
		t.Fatalf("Unexpected image size %v", b)
	}
	if c := rgbaAt(img, 120, 90); c.R != 255 {
		t.Errorf("Expected white top-left quadrant, got %v", c)
	}
	if c := rgbaAt(img, 220, 90); c.R != 0 {
		t.Errorf("Expected black top-right quadrant, got %v", c)
	}
	if c := rgbaAt(img, 120, 190); c.R != 0 {
		t.Errorf("Expected black bottom-left quadrant, got %v", c)
	}

	ax.SetXLim(2, 0)
	img, err = ax.Render(testWidth, testHeight)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if c := rgbaAt(img, 220, 90); c.R != 255 {
		t.Errorf("Expected white top-right quadrant after flip, got %v", c)
	}
	if c := rgbaAt(img, 120, 90); c.R != 0 {
		t.Errorf("Expected black top-left quadrant after flip, got %v", c)
	}
}

func TestRenderNaNTransparent(t *testing.T) {
	ax := NewAxes()
	_, err := ax.Imshow(ImageLayer{
		Grid:   gridOf(2, 2, math.NaN(), 0, 0, 1),
		Extent: models.Extent{XMin: 0, XMax: 2, YMin: 0, YMax: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	img, err := ax.Render(testWidth, testHeight)
	if err != nil {
		t.Fatal(err)
	}
	if c := rgbaAt(img, 120, 90); c != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("Expected background through NaN, got %v", c)
	}
	if c := rgbaAt(img, 220, 90); c.R != 0 {
		t.Errorf("Expected black pixel, got %v", c)
	}
}

func TestRenderLine(t *testing.T) {
	ax := NewAxes()
	ax.Plot(LineLayer{
		Points: []models.Point{{X: 0, Y: 1}, {X: 2, Y: 1}},
		Color:  color.NRGBA{R: 255, A: 255},
		Width:  3,
	})
	img, err := ax.Render(testWidth, testHeight)
	if err != nil {
		t.Fatal(err)
	}
	if c := rgbaAt(img, 170, 140); c.R != 255 || c.G != 0 {
		t.Errorf("Expected red line pixel, got %v", c)
	}
	if c := rgbaAt(img, 170, 100); c.G != 255 {
		t.Errorf("Expected background away from the line, got %v", c)
	}
}

func TestRenderCanvasTooSmall(t *testing.T) {
	ax := NewAxes()
	if _, err := ax.Render(80, 80); !errors.Is(err, ErrCanvasTooSmall) {
		t.Errorf("Expected ErrCanvasTooSmall, got %v", err)
	}
}

func TestRenderDegenerateView(t *testing.T) {
	ax := NewAxes()
	ax.SetView(View{X: [2]float64{2, 2}, Y: [2]float64{0, 1}})
	if _, err := ax.Render(testWidth, testHeight); !errors.Is(err, ErrDegenerateView) {
		t.Errorf("Expected ErrDegenerateView, got %v", err)
	}
}

func TestEqualAspectBox(t *testing.T) {
	ax := NewAxes()
	ax.EqualAspect = true
	box, err := ax.plotBox(testWidth, testHeight, View{X: [2]float64{0, 4}, Y: [2]float64{1, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if box.Dx() != 200 || box.Dy() != 50 {
		t.Errorf("Expected 200x50 box, got %v", box)
	}
	if box.Min.Y != 115 {
		t.Errorf("Expected the box centered vertically, got %v", box)
	}
}

func TestNiceTicks(t *testing.T) {
	if diff := cmp.Diff([]float64{0, 2, 4, 6, 8, 10}, niceTicks(0, 10)); diff != "" {
		t.Errorf("Ticks mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{-10, -5, 0, 5}, niceTicks(8, -10)); diff != "" {
		t.Errorf("Reversed ticks mismatch (-want +got):\n%s", diff)
	}
	if ticks := niceTicks(3, 3); ticks != nil {
		t.Errorf("Expected no ticks for an empty range, got %v", ticks)
	}
}

func TestSavePNG(t *testing.T) {
	ax := NewAxes()
	ax.Title = "title"
	ax.XLabel = "x (mm)"
	ax.YLabel = "y (mm)"
	img, err := ax.Render(testWidth, testHeight)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "out.png")
	if err := SavePNG(img, path); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatalf("Decoding saved image failed: %v", err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Errorf("Expected bounds %v, got %v", img.Bounds(), decoded.Bounds())
	}
}
