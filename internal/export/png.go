package export

import (
	"bytes"
	"image"
	"image/draw"
	"image/png"

	"github.com/rotisserie/eris"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// PNG rasterizes an SVG document to a width×height PNG. The viewBox is
// stretched onto the target.
func PNG(doc []byte, width, height int) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, eris.Errorf("export: invalid png size %dx%d", width, height)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(doc), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, eris.Wrap(err, "export: parse svg")
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	scanner := rasterx.NewScannerGV(width, height, img, img.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "export: encode png")
	}
	return buf.Bytes(), nil
}
