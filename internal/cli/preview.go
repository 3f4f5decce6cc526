package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/term"

	"github.com/jmylchreest/prism/internal/quantize"
)

// ANSI escape codes for terminal colours.
const (
	ansiReset    = "\033[0m"
	ansiFgPrefix = "\033[38;2;"
	ansiBgPrefix = "\033[48;2;"
	ansiSuffix   = "m"
	swatchWidth  = 8
)

// Preview modes.
const (
	previewAuto   = "auto"
	previewAlways = "always"
	previewNever  = "never"
)

// usePreview resolves a preview mode against the destination writer. Auto
// enables swatches only on a terminal.
func usePreview(mode string, w io.Writer) (bool, error) {
	switch mode {
	case previewAlways:
		return true, nil
	case previewNever:
		return false, nil
	case previewAuto, "":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid preview mode: %s (valid: %s, %s, %s)", mode, previewAuto, previewAlways, previewNever)
	}
}

// swatch renders p as a solid block with label centred in a contrasting
// text colour.
func swatch(p quantize.Pixel, label string, width int) string {
	if width <= 0 {
		width = swatchWidth
	}

	fg := quantize.Pixel{R: 255, G: 255, B: 255}
	if isLight(p) {
		fg = quantize.Pixel{}
	}

	text := label
	if len(text) > width {
		text = text[:width]
	}
	pad := (width - len(text)) / 2
	text = strings.Repeat(" ", pad) + text + strings.Repeat(" ", width-len(text)-pad)

	return fmt.Sprintf("%s%d;%d;%d%s%s%d;%d;%d%s%s%s",
		ansiBgPrefix, p.R, p.G, p.B, ansiSuffix,
		ansiFgPrefix, fg.R, fg.G, fg.B, ansiSuffix,
		text, ansiReset)
}

// isLight reports whether dark text reads better than light text on p.
func isLight(p quantize.Pixel) bool {
	c := colorful.Color{R: float64(p.R) / 255, G: float64(p.G) / 255, B: float64(p.B) / 255}
	l, _, _ := c.Lab()
	return l > 0.5
}

// visibleLen is the printed width of s, ignoring ANSI escape sequences.
func visibleLen(s string) int {
	n := 0
	inEscape := false
	for _, r := range s {
		switch {
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		case r == '\033':
			inEscape = true
		default:
			n++
		}
	}
	return n
}
