package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jmylchreest/prism/internal/dataset"
	"github.com/jmylchreest/prism/internal/quantize"
)

// setupTests isolates the config location and returns a scratch directory.
func setupTests(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	return t.TempDir()
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeChecker writes a size x size PNG alternating black and white pixels.
func writeChecker(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			c := color.NRGBA{A: 255}
			if (x+y)%2 == 1 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func twoTone() []quantize.Pixel {
	var pixels []quantize.Pixel
	for range 4 {
		pixels = append(pixels, black, white)
	}
	return pixels
}

func TestQuantizeCommandDataset(t *testing.T) {
	dir := setupTests(t)
	path := filepath.Join(dir, "imgData1.json")
	if err := dataset.Write(path, twoTone()); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "quantize", "-a", "octree", "-c", "2", "--preview", "never", path)
	if err != nil {
		t.Fatalf("quantize failed: %v", err)
	}
	want := "# " + path + " [octree]\n#000000\n#ffffff\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("quantize output mismatch (-want +got):\n%s", diff)
	}
}

func TestQuantizeCommandEnvironment(t *testing.T) {
	dir := setupTests(t)
	path := filepath.Join(dir, "imgData1.json.xz")
	if err := dataset.Write(path, twoTone()); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PRISM_ALGORITHM", "mediancut")
	t.Setenv("PRISM_COLOURS", "2")
	t.Setenv("PRISM_FORMAT", "rgb")

	stdout, _, err := execute(t, "quantize", "--preview", "never", path)
	if err != nil {
		t.Fatalf("quantize failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "# "+path+" [mediancut]\n") {
		t.Errorf("output = %q, want a single median cut result", stdout)
	}
	if !strings.Contains(stdout, "rgb(255, 255, 255)") || !strings.Contains(stdout, "rgb(0, 0, 0)") {
		t.Errorf("output = %q, want rgb formatted black and white", stdout)
	}
}

func TestQuantizeCommandPartialFailure(t *testing.T) {
	dir := setupTests(t)
	good := filepath.Join(dir, "imgData1.json")
	bad := filepath.Join(dir, "imgData2.json")
	if err := dataset.Write(good, twoTone()); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte(`[[300, 0, 0]]`), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, err := execute(t, "quantize", "-a", "octree", "-c", "2", "--preview", "never", bad, good)
	if err == nil {
		t.Fatal("quantize expected error for the invalid dump, got nil")
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("error = %v, want it to name %s", err, bad)
	}
	if !strings.Contains(stdout, "# "+good+" [octree]") {
		t.Errorf("output = %q, want the valid dump's palette", stdout)
	}
	if !strings.Contains(stderr, "failed to load image") {
		t.Errorf("stderr = %q, want a load warning", stderr)
	}
}

func TestQuantizeCommandImageToFile(t *testing.T) {
	dir := setupTests(t)
	img := filepath.Join(dir, "checker.png")
	writeChecker(t, img, 4)
	out := filepath.Join(dir, "palette.json")

	_, _, err := execute(t, "quantize", "-a", "kmeans,octree", "-c", "2", "--scale", "1", "--seed", "3",
		"-f", "json", "-o", out, img)
	if err != nil {
		t.Fatalf("quantize failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output file not written: %v", err)
	}
	for _, want := range []string{`"algorithm": "kmeans"`, `"algorithm": "octree"`, `"pixels": 16`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("output missing %s:\n%s", want, data)
		}
	}
}

func TestQuantizeCommandInvalid(t *testing.T) {
	dir := setupTests(t)
	path := filepath.Join(dir, "imgData1.json")
	if err := dataset.Write(path, twoTone()); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{name: "no inputs", args: []string{"quantize"}},
		{name: "zero colours", args: []string{"quantize", "-c", "0", path}},
		{name: "unknown algorithm", args: []string{"quantize", "-a", "dbscan", path}},
		{name: "missing input", args: []string{"quantize", filepath.Join(dir, "missing.png")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := execute(t, tt.args...); err == nil {
				t.Errorf("execute(%v) expected error, got nil", tt.args)
			}
		})
	}
}

func TestDumpCommand(t *testing.T) {
	dir := setupTests(t)
	images := filepath.Join(dir, "images")
	if err := os.Mkdir(images, 0o700); err != nil {
		t.Fatal(err)
	}
	writeChecker(t, filepath.Join(images, "a.png"), 20)
	writeChecker(t, filepath.Join(images, "b.png"), 10)
	out := filepath.Join(dir, "data")

	if _, _, err := execute(t, "dump", "--scale", "0.5", "--compress", "-o", out, images); err != nil {
		t.Fatalf("dump failed: %v", err)
	}

	for name, want := range map[string]int{"imgData1.json.xz": 100, "imgData2.json.xz": 25} {
		pixels, err := dataset.Load(filepath.Join(out, name))
		if err != nil {
			t.Fatalf("Load(%s) unexpected error: %v", name, err)
		}
		if len(pixels) != want {
			t.Errorf("%s holds %d pixels, want %d", name, len(pixels), want)
		}
	}

	if _, _, err := execute(t, "dump", "-o", out, filepath.Join(out, "imgData1.json.xz")); err == nil {
		t.Error("dump of a pixel dump expected error, got nil")
	}
}

func TestRenderCommand(t *testing.T) {
	dir := setupTests(t)
	in := filepath.Join(dir, "checker.png")
	writeChecker(t, in, 4)
	out := filepath.Join(dir, "out.png")

	if _, _, err := execute(t, "render", "-a", "octree", "-c", "2", "--scale", "1", "--dither", "none", "-o", out, in); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	for y := range 4 {
		for x := range 4 {
			r, _, _, _ := img.At(x, y).RGBA()
			want := uint32(0)
			if (x+y)%2 == 1 {
				want = 0xffff
			}
			if r != want {
				t.Errorf("pixel (%d, %d) red = %#x, want %#x", x, y, r, want)
			}
		}
	}
}

func TestQuantizeCommandArchive(t *testing.T) {
	dir := setupTests(t)
	scratch := t.TempDir()
	writeChecker(t, filepath.Join(scratch, "a.png"), 2)
	writeChecker(t, filepath.Join(scratch, "b.png"), 2)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"a.png", "notes.txt", "b.png"} {
		data := []byte("not an image")
		if name != "notes.txt" {
			var err error
			if data, err = os.ReadFile(filepath.Join(scratch, name)); err != nil {
				t.Fatal(err)
			}
		}
		w, err := zw.Create("pack/" + name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	archive := filepath.Join(dir, "walls.zip")
	if err := os.WriteFile(archive, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "quantize", "-a", "octree", "-c", "2", "--scale", "1", "--preview", "never", archive)
	if err != nil {
		t.Fatalf("quantize failed: %v", err)
	}
	want := "" +
		"# " + archive + "/pack/a.png [octree]\n#000000\n#ffffff\n\n" +
		"# " + archive + "/pack/b.png [octree]\n#000000\n#ffffff\n"
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("quantize output mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionCommand(t *testing.T) {
	setupTests(t)
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(stdout, "prism") {
		t.Errorf("version output = %q, want it to name prism", stdout)
	}
}

func TestExpandInputs(t *testing.T) {
	dir := setupTests(t)
	writeChecker(t, filepath.Join(dir, "a.png"), 2)
	dump := filepath.Join(dir, "imgData1.json")
	if err := dataset.Write(dump, twoTone()); err != nil {
		t.Fatal(err)
	}

	got, err := expandInputs([]string{dir, dump, "https://example.com/wall.jpg"}, true)
	if err != nil {
		t.Fatalf("expandInputs() unexpected error: %v", err)
	}
	want := []input{
		{path: filepath.Join(dir, "a.png"), kind: inputImage},
		{path: dump, kind: inputDataset},
		{path: "https://example.com/wall.jpg", kind: inputImage},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(input{})); diff != "" {
		t.Errorf("expandInputs() mismatch (-want +got):\n%s", diff)
	}

	if _, err := expandInputs([]string{dump}, false); err == nil {
		t.Error("expandInputs(dump, false) expected error, got nil")
	}
}

func TestPixelSourceLoad(t *testing.T) {
	dir := setupTests(t)
	path := filepath.Join(dir, "checker.png")
	writeChecker(t, path, 2)

	pixels, err := newPixelSource(1, nil).load(context.Background(), input{path: path, kind: inputImage})
	if err != nil {
		t.Fatalf("load() unexpected error: %v", err)
	}
	want := []quantize.Pixel{black, white, white, black}
	if diff := cmp.Diff(want, pixels); diff != "" {
		t.Errorf("load() mismatch (-want +got):\n%s", diff)
	}
}
