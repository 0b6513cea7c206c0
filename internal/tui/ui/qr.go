package ui

import (
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// halfBlocks maps a (top, bottom) module pair, top in bit 1, to one cell.
var halfBlocks = [4]rune{' ', '▄', '▀', '█'}

// RenderQR draws content as a QR code in half-block characters, two module
// rows per line. With invert set the light modules are drawn instead, which
// keeps the code scannable on terminals with a dark background.
func RenderQR(content string, invert bool) (string, error) {
	qr, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return "", err
	}

	bitmap := qr.Bitmap()
	dark := func(y, x int) bool {
		if y >= len(bitmap) {
			return invert
		}
		return bitmap[y][x] != invert
	}

	var sb strings.Builder
	for y := 0; y < len(bitmap); y += 2 {
		sb.WriteString("  ")
		for x := range bitmap[y] {
			idx := 0
			if dark(y, x) {
				idx |= 2
			}
			if dark(y+1, x) {
				idx |= 1
			}
			sb.WriteRune(halfBlocks[idx])
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
