package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
	"testing"

	diskimaging "github.com/disintegration/imaging"

	"github.com/ironsheep/quiz-tapper/internal/screen"
)

func noEnv(string) (string, bool) { return "", false }

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), args, &stdout, &stderr, noEnv)
	return code, stdout.String(), stderr.String()
}

// saveScreen writes a 540x1200 screenshot; with bars it shows four 400x60
// answer bars under a question block.
func saveScreen(t *testing.T, bars bool) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 540, 1200))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if bars {
		ink := image.NewUniform(color.Gray{Y: 30})
		draw.Draw(img, image.Rect(0, 80, 540, 120), ink, image.Point{}, draw.Src)
		for row := 0; row < 7; row++ {
			y := 400 + row*30
			for x := 60; x < 480; x += 10 {
				draw.Draw(img, image.Rect(x, y, x+3, y+16), ink, image.Point{}, draw.Src)
			}
		}
		bar := image.NewUniform(color.Gray{Y: 90})
		for i := 0; i < 4; i++ {
			top := 640 + i*90
			draw.Draw(img, image.Rect(70, top, 470, top+60), bar, image.Point{}, draw.Src)
		}
	}
	path := filepath.Join(t.TempDir(), "screen.png")
	if err := diskimaging.Save(img, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVersionAndHelp(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != 0 || !strings.HasPrefix(out, "quiz-tapper dev") {
		t.Errorf("version: code %d, out %q", code, out)
	}
	code, out, _ = runCLI(t, "--help")
	if code != 0 || !strings.Contains(out, "Commands:") {
		t.Errorf("help: code %d, out %q", code, out)
	}
}

func TestUsageErrors(t *testing.T) {
	if code, _, errOut := runCLI(t); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Errorf("no args: code %d", code)
	}
	if code, _, errOut := runCLI(t, "dance"); code != 2 || !strings.Contains(errOut, `unknown command "dance"`) {
		t.Errorf("unknown command: code %d, stderr %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "match"); code != 1 || !strings.Contains(errOut, "usage: quiz-tapper match") {
		t.Errorf("match without file: code %d, stderr %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "match", "--match-retries=0", "x.png"); code != 1 || !strings.Contains(errOut, "match_retries") {
		t.Errorf("invalid config: code %d, stderr %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "match", "-h"); code != 0 {
		t.Errorf("match -h: code %d", code)
	}
}

func TestMatchCommand(t *testing.T) {
	overlay := filepath.Join(t.TempDir(), "overlay.png")
	code, out, errOut := runCLI(t, "match", "--out", overlay, saveScreen(t, true))
	if code != 0 {
		t.Fatalf("code %d, stderr %s", code, errOut)
	}

	var rep screen.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("stdout is not a report: %v\n%s", err, out)
	}
	if !rep.Matched || len(rep.Choices) != 4 {
		t.Errorf("report: %+v", rep)
	}
	if _, err := os.Stat(overlay); err != nil {
		t.Errorf("overlay not written: %v", err)
	}
}

func TestMatchCommandNoLayout(t *testing.T) {
	code, out, _ := runCLI(t, "match", saveScreen(t, false))
	if code != 1 {
		t.Errorf("code %d, want 1", code)
	}
	var rep screen.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("stdout is not a report: %v", err)
	}
	if rep.Matched || rep.Failure == nil {
		t.Errorf("report: %+v", rep)
	}
}

func TestRunRequiresAnswerer(t *testing.T) {
	code, _, errOut := runCLI(t, "run", "--api-model=m", "--api-key=k")
	if code != 1 || !strings.Contains(errOut, "api_url") {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestDevicesCommandMissingADB(t *testing.T) {
	code, _, errOut := runCLI(t, "devices", "--adb", filepath.Join(t.TempDir(), "no-adb"))
	if code != 1 || errOut == "" {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}
