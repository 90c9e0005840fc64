// Package cardimg rasterizes an issued visitor pass into a shareable PNG:
// a QR code of the opaque card number above a small block of labels. The
// card number is the only scannable content on the card.
package cardimg

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	cardWidth     = 480
	captureHeight = 640
	qrSize        = 320
	lineHeight    = 18
)

// Card is everything drawn onto the pass surface.
type Card struct {
	ResidentName string
	VisitorName  string
	Gate         int
	CardNumber   string
	ExpiresAt    time.Time
}

// Style is the mutable visual state of the template. The interactive surface
// may use a translucent background, automatic height and right-to-left text;
// capture forces all three to scanner-friendly values.
type Style struct {
	Background  color.Color
	FixedHeight int  // 0 means automatic
	RightToLeft bool // embedded data must always rasterize left-to-right
}

// DefaultStyle is the interactive display style.
func DefaultStyle() Style {
	return Style{
		Background:  color.NRGBA{255, 255, 255, 0},
		FixedHeight: 0,
		RightToLeft: true,
	}
}

// captureStyle is the normalized style forced for rasterization: opaque
// background, fixed height, left-to-right.
func captureStyle() Style {
	return Style{
		Background:  color.White,
		FixedHeight: captureHeight,
		RightToLeft: false,
	}
}

// Template renders cards. Its style mutations during capture are scoped:
// every exit path, including errors, restores the prior style.
type Template struct {
	mu    sync.Mutex
	style Style
}

func NewTemplate() *Template {
	return &Template{style: DefaultStyle()}
}

// Style returns the template's current style.
func (t *Template) Style() Style {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.style
}

// SetStyle replaces the interactive style.
func (t *Template) SetStyle(s Style) {
	t.mu.Lock()
	t.style = s
	t.mu.Unlock()
}

// Render rasterizes the card to PNG under the normalized capture style and
// restores the previous style before returning, on success or failure.
func (t *Template) Render(card Card) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.style
	t.style = captureStyle()
	defer func() { t.style = prev }()

	return t.render(card)
}

func (t *Template) render(card Card) ([]byte, error) {
	if card.CardNumber == "" {
		return nil, fmt.Errorf("cardimg: card number is empty")
	}

	code, err := qr.Encode(card.CardNumber, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("cardimg: encode qr: %w", err)
	}
	code, err = barcode.Scale(code, qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("cardimg: scale qr: %w", err)
	}

	height := t.style.FixedHeight
	if height == 0 {
		height = captureHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(t.style.Background), image.Point{}, draw.Src)

	qrOrigin := image.Pt((cardWidth-qrSize)/2, 32)
	draw.Draw(img, image.Rectangle{Min: qrOrigin, Max: qrOrigin.Add(image.Pt(qrSize, qrSize))}, code, image.Point{}, draw.Over)

	lines := []string{
		"Visitor: " + card.VisitorName,
		fmt.Sprintf("Gate %d", card.Gate),
		"Host: " + card.ResidentName,
		"Card " + card.CardNumber,
		"Valid until " + card.ExpiresAt.Format("2006-01-02 15:04 -0700"),
	}
	y := qrOrigin.Y + qrSize + 40
	for _, line := range lines {
		drawText(img, line, y)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("cardimg: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func drawText(dst *image.RGBA, s string, y int) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, s).Ceil()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P((cardWidth-width)/2, y),
	}
	d.DrawString(s)
}
