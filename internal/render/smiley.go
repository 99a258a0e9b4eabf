// Package render turns plan markdown into the artifacts students receive:
// PDF documents, terminal previews and the inline smiley image.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"

	"github.com/fogleman/gg"
)

const smileySize = 64

// Smiley draws the happy face shown in the closing line of onboarding PDFs
// and returns it as PNG bytes.
func Smiley() ([]byte, error) {
	dc := gg.NewContext(smileySize, smileySize)

	// face
	dc.DrawEllipse(32, 32, 28, 28)
	dc.SetHexColor("#FFCC00")
	dc.FillPreserve()
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(3)
	dc.Stroke()

	for _, x := range []float64{22, 42} {
		dc.DrawEllipse(x, 26, 4, 4)
		dc.SetRGB(0, 0, 0)
		dc.Fill()
		dc.DrawCircle(x+1.5, 24.5, 1.2)
		dc.SetRGB(1, 1, 1)
		dc.Fill()
	}

	dc.DrawEllipticalArc(32, 39, 16, 8, 0, math.Pi)
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(3)
	dc.Stroke()

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode smiley: %w", err)
	}
	return buf.Bytes(), nil
}

// SmileyDataURI returns the smiley as a base64 PNG data URI.
func SmileyDataURI() (string, error) {
	png, err := Smiley()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
