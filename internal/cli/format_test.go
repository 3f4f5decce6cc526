package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/prism/internal/batch"
	"github.com/jmylchreest/prism/internal/config"
	"github.com/jmylchreest/prism/internal/quantize"
)

var black, white = quantize.Pixel{}, quantize.Pixel{R: 255, G: 255, B: 255}

func sampleOutcomes() []batch.Outcome {
	return []batch.Outcome{
		{
			Image:     "a.png",
			Algorithm: quantize.AlgorithmOctree,
			Pixels:    4,
			Result: &quantize.Result{
				Palette:   quantize.Palette{black, white},
				Counts:    []int{3, 1},
				Requested: 2,
			},
		},
		{
			Image:     "b.png",
			Algorithm: quantize.AlgorithmMedianCut,
			Err:       errors.New("boom"),
		},
	}
}

func TestFormatOutcomesText(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{format: config.FormatHex, want: "# a.png [octree]\n#000000\n#ffffff\n"},
		{format: config.FormatRGB, want: "# a.png [octree]\nrgb(0, 0, 0)\nrgb(255, 255, 255)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := formatOutcomes(sampleOutcomes(), tt.format, false)
			if err != nil {
				t.Fatalf("formatOutcomes() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("formatOutcomes() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormatOutcomesMultiple(t *testing.T) {
	outcomes := sampleOutcomes()
	second := outcomes[0]
	second.Algorithm = quantize.AlgorithmKMeans
	outcomes = append(outcomes, second)

	got, err := formatOutcomes(outcomes, config.FormatHex, false)
	if err != nil {
		t.Fatalf("formatOutcomes() unexpected error: %v", err)
	}
	want := "# a.png [octree]\n#000000\n#ffffff\n\n# a.png [kmeans]\n#000000\n#ffffff\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("formatOutcomes() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatOutcomesJSON(t *testing.T) {
	got, err := formatOutcomes(sampleOutcomes(), config.FormatJSON, false)
	if err != nil {
		t.Fatalf("formatOutcomes() unexpected error: %v", err)
	}

	var decoded []outcomeJSON
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, got)
	}
	want := []outcomeJSON{{
		Image:     "a.png",
		Algorithm: "octree",
		Pixels:    4,
		Requested: 2,
		Colours: []colourJSON{
			{Hex: "#000000", RGB: black, Count: 3, Weight: 0.75},
			{Hex: "#ffffff", RGB: white, Count: 1, Weight: 0.25},
		},
	}}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Errorf("JSON mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatOutcomesTable(t *testing.T) {
	got, err := formatOutcomes(sampleOutcomes(), config.FormatTable, false)
	if err != nil {
		t.Fatalf("formatOutcomes() unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4:\n%s", len(lines), got)
	}
	for _, want := range []string{"IMAGE", "#000000", "rgb(255, 255, 255)", "75.0%", "25.0%"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "b.png") {
		t.Errorf("table includes a failed outcome:\n%s", got)
	}
}

func TestFormatOutcomesPreview(t *testing.T) {
	got, err := formatOutcomes(sampleOutcomes(), config.FormatHex, true)
	if err != nil {
		t.Fatalf("formatOutcomes() unexpected error: %v", err)
	}
	if !strings.Contains(got, ansiBgPrefix+"255;255;255"+ansiSuffix) {
		t.Errorf("preview output has no white swatch: %q", got)
	}
	if plain := stripANSI(got); !strings.Contains(plain, "         #ffffff") {
		t.Errorf("preview output = %q, want a swatch before each hex code", plain)
	}
}

func TestFormatOutcomesUnknown(t *testing.T) {
	if _, err := formatOutcomes(sampleOutcomes(), "xml", false); err == nil {
		t.Error("formatOutcomes(xml) expected error, got nil")
	}
}

func TestUsePreview(t *testing.T) {
	var buf bytes.Buffer
	tests := []struct {
		mode    string
		want    bool
		wantErr bool
	}{
		{mode: previewAlways, want: true},
		{mode: previewNever, want: false},
		{mode: previewAuto, want: false},
		{mode: "", want: false},
		{mode: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			got, err := usePreview(tt.mode, &buf)
			if (err != nil) != tt.wantErr {
				t.Fatalf("usePreview() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("usePreview() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSwatchContrast(t *testing.T) {
	tests := []struct {
		name  string
		p     quantize.Pixel
		light bool
	}{
		{name: "white", p: white, light: true},
		{name: "black", p: black, light: false},
		{name: "yellow", p: quantize.Pixel{R: 255, G: 255}, light: true},
		{name: "navy", p: quantize.Pixel{B: 128}, light: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isLight(tt.p); got != tt.light {
				t.Errorf("isLight(%v) = %v, want %v", tt.p, got, tt.light)
			}
			fg := ansiFgPrefix + "255;255;255" + ansiSuffix
			if tt.light {
				fg = ansiFgPrefix + "0;0;0" + ansiSuffix
			}
			if s := swatch(tt.p, "x", 3); !strings.Contains(s, fg) {
				t.Errorf("swatch(%v) = %q, want text colour %q", tt.p, s, fg)
			}
		})
	}
}

func TestSwatchWidth(t *testing.T) {
	tests := []struct {
		label string
		width int
		want  string
	}{
		{label: "ab", width: 6, want: "  ab  "},
		{label: "abc", width: 6, want: " abc  "},
		{label: "toolong", width: 4, want: "tool"},
		{label: "", width: 0, want: strings.Repeat(" ", swatchWidth)},
	}
	for _, tt := range tests {
		s := swatch(black, tt.label, tt.width)
		if got := stripANSI(s); got != tt.want {
			t.Errorf("swatch(%q, %d) prints %q, want %q", tt.label, tt.width, got, tt.want)
		}
		if got := visibleLen(s); got != len(tt.want) {
			t.Errorf("visibleLen(swatch(%q, %d)) = %d, want %d", tt.label, tt.width, got, len(tt.want))
		}
	}
}
