// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	cellW   = 24
	cellH   = 40
	margin  = 16
	fontPts = 30
)

var (
	faceOnce sync.Once
	face     font.Face
	faceErr  error
)

func monoFace() (font.Face, error) {
	faceOnce.Do(func() {
		f, err := truetype.Parse(gomono.TTF)
		if err != nil {
			faceErr = err
			return
		}
		face = truetype.NewFace(f, &truetype.Options{Size: fontPts})
	})
	return face, faceErr
}

// Image renders the glass: dark characters on the backlight color, blank
// when the display is off.
func (d *Dev) Image() (image.Image, error) {
	ff, err := monoFace()
	if err != nil {
		return nil, err
	}
	text := d.Text()
	on := d.On()
	w := 2*margin + d.cols*cellW
	h := 2*margin + d.rows*cellH
	dc := gg.NewContext(w, h)
	dc.SetColor(backlightColor(d.Backlight()))
	dc.Clear()
	if !on {
		return dc.Image(), nil
	}
	dc.SetFontFace(ff)
	dc.SetRGB(0.08, 0.1, 0.06)
	row, col := 0, 0
	for _, c := range []byte(text) {
		if c == '\n' {
			row++
			col = 0
			continue
		}
		if c > 0x20 && c < 0x7f {
			x := float64(margin + col*cellW + cellW/2)
			y := float64(margin + row*cellH + cellH/2)
			dc.DrawStringAnchored(string(rune(c)), x, y, 0.5, 0.5)
		}
		col++
	}
	return dc.Image(), nil
}

// Snapshot writes the glass as a PNG image.
func (d *Dev) Snapshot(w io.Writer) error {
	img, err := d.Image()
	if err != nil {
		return err
	}
	return gg.NewContextForImage(img).EncodePNG(w)
}
