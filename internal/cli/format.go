package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmylchreest/prism/internal/batch"
	"github.com/jmylchreest/prism/internal/config"
	"github.com/jmylchreest/prism/internal/quantize"
)

// colourJSON is one palette entry in JSON output.
type colourJSON struct {
	Hex    string         `json:"hex"`
	RGB    quantize.Pixel `json:"rgb"`
	Count  int            `json:"count"`
	Weight float64        `json:"weight"`
}

// outcomeJSON is one image/algorithm result in JSON output.
type outcomeJSON struct {
	Image     string       `json:"image"`
	Algorithm string       `json:"algorithm"`
	Pixels    int          `json:"pixels"`
	Requested int          `json:"requested"`
	Underfill bool         `json:"underfill,omitempty"`
	ElapsedMS float64      `json:"elapsed_ms"`
	Colours   []colourJSON `json:"colours"`
}

// formatOutcomes renders the successful outcomes in the given format.
// Failed outcomes are left out; they are reported separately.
func formatOutcomes(outcomes []batch.Outcome, format string, preview bool) (string, error) {
	var ok []batch.Outcome
	for _, o := range outcomes {
		if o.Err == nil && o.Result != nil {
			ok = append(ok, o)
		}
	}

	switch format {
	case config.FormatHex:
		return formatLines(ok, preview, func(p quantize.Pixel) string { return p.Hex() }), nil
	case config.FormatRGB:
		return formatLines(ok, preview, func(p quantize.Pixel) string { return p.String() }), nil
	case config.FormatJSON:
		return formatJSON(ok)
	case config.FormatTable:
		return formatTable(ok, preview), nil
	default:
		return "", fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(config.ValidFormats(), ", "))
	}
}

// formatLines writes a header per outcome followed by one colour per line.
func formatLines(outcomes []batch.Outcome, preview bool, text func(quantize.Pixel) string) string {
	var b strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s [%s]\n", o.Image, o.Algorithm)
		for _, p := range o.Result.Palette {
			if preview {
				b.WriteString(swatch(p, "", swatchWidth))
				b.WriteString(" ")
			}
			b.WriteString(text(p))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func formatJSON(outcomes []batch.Outcome) (string, error) {
	out := make([]outcomeJSON, len(outcomes))
	for i, o := range outcomes {
		weights := o.Result.Weights()
		colours := make([]colourJSON, len(o.Result.Palette))
		for j, p := range o.Result.Palette {
			colours[j] = colourJSON{Hex: p.Hex(), RGB: p, Count: o.Result.Counts[j], Weight: weights[j]}
		}
		out[i] = outcomeJSON{
			Image:     o.Image,
			Algorithm: string(o.Algorithm),
			Pixels:    o.Pixels,
			Requested: o.Result.Requested,
			Underfill: o.Result.Underfill,
			ElapsedMS: float64(o.Elapsed.Microseconds()) / 1000,
			Colours:   colours,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to convert to JSON: %w", err)
	}
	return string(data) + "\n", nil
}

func formatTable(outcomes []batch.Outcome, preview bool) string {
	headers := []string{"IMAGE", "ALGORITHM", "#", "HEX", "RGB", "COUNT", "WEIGHT"}
	if preview {
		headers = append(headers, "SWATCH")
	}
	t := NewTable(headers)
	t.AlignRight(2)
	t.AlignRight(5)
	t.AlignRight(6)

	for _, o := range outcomes {
		weights := o.Result.Weights()
		for i, p := range o.Result.Palette {
			row := []string{
				o.Image,
				string(o.Algorithm),
				strconv.Itoa(i + 1),
				p.Hex(),
				p.String(),
				strconv.Itoa(o.Result.Counts[i]),
				fmt.Sprintf("%.1f%%", weights[i]*100),
			}
			if preview {
				row = append(row, swatch(p, p.Hex(), swatchWidth))
			}
			t.AddRow(row)
		}
	}
	return t.Render()
}
