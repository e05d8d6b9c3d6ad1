package projection

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/rakib91221/StableGen/types"
)

// megapixel is the resolution budget AutoRescale steers toward.
const megapixel = 1024 * 1024

// Layout describes how n viewpoint tiles pack into one near-square
// composite.
type Layout struct {
	Cols, Rows int
	TileWidth  int
	TileHeight int
	Count      int
}

// GridLayout computes the near-square layout for n tiles of the given
// size: cols = ceil(sqrt(n)), rows = ceil(n/cols).
func GridLayout(n, tileWidth, tileHeight int) Layout {
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := 0
	if cols > 0 {
		rows = (n + cols - 1) / cols
	}
	return Layout{
		Cols:       cols,
		Rows:       rows,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Count:      n,
	}
}

// Bounds returns the composite dimensions.
func (l Layout) Bounds() (int, int) { return l.Cols * l.TileWidth, l.Rows * l.TileHeight }

// CellRect returns the bounding box of tile i in the composite.
func (l Layout) CellRect(i int) image.Rectangle {
	col, row := i%l.Cols, i/l.Cols
	return image.Rect(
		col*l.TileWidth, row*l.TileHeight,
		(col+1)*l.TileWidth, (row+1)*l.TileHeight,
	)
}

// Tile packs the images into one composite, resampling each onto its
// cell. Cells past the image count stay black.
func Tile(images []image.Image, layout Layout) (*image.NRGBA, error) {
	if len(images) != layout.Count {
		return nil, types.NewError(types.ErrConfiguration,
			"grid layout for %d tiles fed %d images", layout.Count, len(images))
	}
	w, h := layout.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, img := range images {
		xdraw.ApproxBiLinear.Scale(dst, layout.CellRect(i), img, img.Bounds(), xdraw.Src, nil)
	}
	return dst, nil
}

// Split cuts a composite back into its per-viewpoint tiles by the same
// layout, so tile-then-split reproduces each cell's bounding box exactly.
func Split(composite image.Image, layout Layout) ([]*image.NRGBA, error) {
	w, h := layout.Bounds()
	if b := composite.Bounds(); b.Dx() != w || b.Dy() != h {
		return nil, types.NewError(types.ErrConfiguration,
			"composite %dx%d does not match layout %dx%d", b.Dx(), b.Dy(), w, h)
	}
	tiles := make([]*image.NRGBA, layout.Count)
	for i := range tiles {
		cell := layout.CellRect(i).Add(composite.Bounds().Min)
		tile := image.NewNRGBA(image.Rect(0, 0, layout.TileWidth, layout.TileHeight))
		xdraw.Copy(tile, image.Point{}, composite, cell, xdraw.Src, nil)
		tiles[i] = tile
	}
	return tiles, nil
}

// Rescale resamples an image to the given size with bilinear filtering.
func Rescale(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// The tolerance band around the megapixel budget. Resolutions inside the
// band whose sides are already multiples of eight are left untouched.
const (
	minBudgetPixels = megapixel * 4 / 5
	maxBudgetPixels = megapixel * 6 / 5
)

// OverBudget reports whether a resolution exceeds the upper pixel bound.
func OverBudget(width, height int) bool {
	return width*height > maxBudgetPixels
}

// SnapResolution scales a resolution toward the one-megapixel budget,
// preserving aspect ratio and snapping both sides to multiples of eight.
// Resolutions already inside the tolerance band pass through unchanged.
// Sides never snap below eight.
func SnapResolution(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	pixels := width * height
	if pixels >= minBudgetPixels && pixels <= maxBudgetPixels && width%8 == 0 && height%8 == 0 {
		return width, height
	}
	factor := math.Sqrt(float64(megapixel) / float64(pixels))
	return snapToEight(float64(width) * factor), snapToEight(float64(height) * factor)
}

func snapToEight(v float64) int {
	snapped := int(math.Round(v/8)) * 8
	if snapped < 8 {
		return 8
	}
	return snapped
}
