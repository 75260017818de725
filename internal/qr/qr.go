// Package qr renders pairing QR payloads for HTTP-style clients and terminals.
package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const dataURLPrefix = "data:image/png;base64,"

// DataURL encodes content as a PNG QR code in a data URL.
func DataURL(content string) (string, error) {
	img, err := qrcode.Encode(content, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(img), nil
}

// Terminal renders content as a compact QR block using Unicode half-block
// characters, two modules per row.
func Terminal(content string) string {
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "  (QR generation failed: " + err.Error() + ")"
	}
	return render(code.Bitmap())
}

// TerminalFromDataURL renders a QR code previously produced by DataURL.
func TerminalFromDataURL(dataURL string) (string, error) {
	modules, err := Modules(dataURL)
	if err != nil {
		return "", err
	}
	return render(pad(modules, 2)), nil
}

// Modules samples the module grid, without quiet zone, out of a PNG QR data URL.
func Modules(dataURL string) ([][]bool, error) {
	payload, ok := strings.CutPrefix(dataURL, dataURLPrefix)
	if !ok {
		return nil, errors.New("not a PNG data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	b := img.Bounds()
	dark := func(x, y int) bool {
		r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
		return (r+g+bl)/3 < 0x8000
	}

	// The top-left finder pattern starts on the diagonal and is 7 modules wide.
	start := -1
	for i := 0; i < b.Dx() && i < b.Dy(); i++ {
		if dark(i, i) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, errors.New("no QR symbol found")
	}
	run := 0
	for x := start; x < b.Dx() && dark(x, start); x++ {
		run++
	}
	size := float64(run) / 7
	if size < 1 {
		return nil, errors.New("QR modules smaller than a pixel")
	}
	// Symbols are 4*version+17 modules wide; snap the estimate to that grid.
	span := float64(b.Dx() - 2*start)
	n := int(math.Round((span/size-1)/4))*4 + 1
	if n < 21 {
		return nil, errors.New("no QR symbol found")
	}
	size = span / float64(n)

	modules := make([][]bool, n)
	for y := range modules {
		row := make([]bool, n)
		py := start + int((float64(y)+0.5)*size)
		for x := range row {
			px := start + int((float64(x)+0.5)*size)
			row[x] = image.Pt(px, py).In(image.Rect(0, 0, b.Dx(), b.Dy())) && dark(px, py)
		}
		modules[y] = row
	}
	return modules, nil
}

func pad(modules [][]bool, border int) [][]bool {
	n := len(modules) + 2*border
	out := make([][]bool, n)
	for y := range out {
		out[y] = make([]bool, n)
		if y < border || y >= n-border {
			continue
		}
		copy(out[y][border:], modules[y-border])
	}
	return out
}

func render(bitmap [][]bool) string {
	rows := len(bitmap)
	cols := 0
	if rows > 0 {
		cols = len(bitmap[0])
	}

	var sb strings.Builder
	for y := 0; y < rows; y += 2 {
		sb.WriteString("  ")
		for x := 0; x < cols; x++ {
			top := bitmap[y][x]
			bot := y+1 < rows && bitmap[y+1][x]
			switch {
			case top && bot:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bot:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteRune('\n')
	}
	return sb.String()
}
