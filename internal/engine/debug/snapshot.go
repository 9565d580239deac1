package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/image/draw"
)

// DefaultSnapshotSize is the largest edge written by NewDepthSnapshot.
const DefaultSnapshotSize = 1024

// DepthSnapshot writes shadow map contents to grayscale PNG files.
type DepthSnapshot struct {
	// MaxSize bounds the written image edge. Larger maps are scaled down
	// bilinearly; zero keeps the native size.
	MaxSize int

	outputDir string
	prefix    string
	now       func() time.Time
}

// NewDepthSnapshot creates a snapshot writer.
func NewDepthSnapshot(outputDir, prefix string) *DepthSnapshot {
	return &DepthSnapshot{
		MaxSize:   DefaultSnapshotSize,
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// Filename returns the path a snapshot of split would be written to.
func (ds *DepthSnapshot) Filename(split int) string {
	timestamp := ds.now().Format("2006-01-02_15-04-05")
	name := fmt.Sprintf("%s_%s_split%d.png", ds.prefix, timestamp, split)
	if ds.outputDir != "" {
		name = filepath.Join(ds.outputDir, name)
	}
	return name
}

// Save writes a size×size depth map. Values are stretched so the nearest
// texel is black and the farthest white. Rows are flipped since OpenGL has
// its origin at the bottom-left.
func (ds *DepthSnapshot) Save(split int, depths []float32, size int) (string, error) {
	var img image.Image
	img, err := DepthImage(depths, size)
	if err != nil {
		return "", err
	}
	if ds.MaxSize > 0 && size > ds.MaxSize {
		img = Downscale(img, ds.MaxSize)
	}

	if ds.outputDir != "" {
		if err := os.MkdirAll(ds.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := ds.Filename(split)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}

// DepthImage converts depths to a normalized grayscale image.
func DepthImage(depths []float32, size int) (*image.Gray16, error) {
	if size <= 0 || len(depths) != size*size {
		return nil, fmt.Errorf("depth data size mismatch: expected %d, got %d", size*size, len(depths))
	}

	lo, hi := depths[0], depths[0]
	for _, d := range depths {
		lo = min(lo, d)
		hi = max(hi, d)
	}
	scale := float32(0)
	if hi > lo {
		scale = 1 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		row := depths[(size-1-y)*size : (size-y)*size]
		for x, d := range row {
			img.SetGray16(x, y, color.Gray16{Y: uint16((d - lo) * scale * 0xffff)})
		}
	}
	return img, nil
}

// Downscale resizes img to fit within edge×edge.
func Downscale(img image.Image, edge int) *image.Gray16 {
	b := img.Bounds()
	w, h := edge, edge
	if b.Dx() > b.Dy() {
		h = max(1, b.Dy()*edge/b.Dx())
	} else if b.Dy() > b.Dx() {
		w = max(1, b.Dx()*edge/b.Dy())
	}
	dst := image.NewGray16(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
