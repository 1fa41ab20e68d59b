// Package device drives an Android phone through adb: screen capture,
// screen size, device discovery and taps.
package device

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/logging"
)

// Commander runs an external program and returns its stdout.
type Commander interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommander struct{}

func (execCommander) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// State is the authorization state adb reports for a device.
type State string

const (
	StateDevice       State = "device"
	StateUnauthorized State = "unauthorized"
)

// Device is one line of `adb devices`.
type Device struct {
	Serial string `json:"serial"`
	State  State  `json:"state"`
}

// Usable reports whether commands can be sent to the device.
func (d Device) Usable() bool { return d.State == StateDevice }

// ADB is an adb client bound to at most one device serial.
type ADB struct {
	bin     string
	serial  string
	cmd     Commander
	sampler *Sampler
	log     logging.Logger
}

// Option configures an ADB client.
type Option func(*ADB)

// WithCommander replaces process execution, mainly for tests.
func WithCommander(c Commander) Option {
	return func(a *ADB) { a.cmd = c }
}

// WithSampler sets the tap point sampler.
func WithSampler(s *Sampler) Option {
	return func(a *ADB) { a.sampler = s }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *ADB) { a.log = logging.Or(l) }
}

// New returns a client for the adb binary at bin ("adb" resolves via PATH).
func New(bin string, opts ...Option) *ADB {
	a := &ADB{bin: bin, cmd: execCommander{}, log: logging.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	if a.sampler == nil {
		a.sampler = NewSampler(nil)
	}
	return a
}

// SetDevice selects the serial passed with -s. Empty lets adb choose.
func (a *ADB) SetDevice(serial string) { a.serial = serial }

// Serial returns the selected device serial.
func (a *ADB) Serial() string { return a.serial }

func (a *ADB) run(ctx context.Context, args ...string) ([]byte, error) {
	if a.serial != "" {
		args = append([]string{"-s", a.serial}, args...)
	}
	a.log.Tracef("%s %s", a.bin, strings.Join(args, " "))
	return a.cmd.Output(ctx, a.bin, args...)
}

// Devices lists attached devices. Lines in any state other than device or
// unauthorized are logged and skipped.
func (a *ADB) Devices(ctx context.Context) ([]Device, error) {
	out, err := a.run(ctx, "devices")
	if err != nil {
		return nil, err
	}

	var devices []Device
	lines := strings.Split(string(out), "\n")
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case strings.HasSuffix(line, string(StateDevice)):
			devices = append(devices, Device{Serial: fields[0], State: StateDevice})
		case strings.HasSuffix(line, string(StateUnauthorized)):
			devices = append(devices, Device{Serial: fields[0], State: StateUnauthorized})
		default:
			a.log.Warnf("unknown device line: %q", line)
		}
	}
	a.log.Infof("devices: %v", devices)
	return devices, nil
}

// SelectFirst picks the first usable device and returns it.
func (a *ADB) SelectFirst(ctx context.Context) (Device, error) {
	devices, err := a.Devices(ctx)
	if err != nil {
		return Device{}, err
	}
	for _, d := range devices {
		if d.Usable() {
			a.SetDevice(d.Serial)
			return d, nil
		}
	}
	if len(devices) > 0 {
		return Device{}, fmt.Errorf("no authorized device (%d attached, accept the USB debugging prompt)", len(devices))
	}
	return Device{}, fmt.Errorf("no device attached")
}

// ScreenSize parses `wm size`, whose last token is WIDTHxHEIGHT.
func (a *ADB) ScreenSize(ctx context.Context) (width, height int, err error) {
	out, err := a.run(ctx, "shell", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("empty wm size output")
	}
	w, h, ok := strings.Cut(fields[len(fields)-1], "x")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected wm size output %q", out)
	}
	if width, err = strconv.Atoi(w); err != nil {
		return 0, 0, fmt.Errorf("bad screen width %q: %w", w, err)
	}
	if height, err = strconv.Atoi(h); err != nil {
		return 0, 0, fmt.Errorf("bad screen height %q: %w", h, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid screen size %dx%d", width, height)
	}
	return width, height, nil
}

// Screencap captures the screen as a PNG and decodes it.
func (a *ADB) Screencap(ctx context.Context) (image.Image, error) {
	out, err := a.run(ctx, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("screencap: %w", err)
	}
	return img, nil
}

// Tap sends a single tap at p.
func (a *ADB) Tap(ctx context.Context, p geometry.Point) error {
	_, err := a.run(ctx, "shell", "input", "tap", strconv.Itoa(p.X), strconv.Itoa(p.Y))
	return err
}

// TapRandom taps a human-looking random point inside r and returns it.
func (a *ADB) TapRandom(ctx context.Context, r geometry.Rect) (geometry.Point, error) {
	p, err := a.sampler.RandomPoint(r)
	if err != nil {
		return geometry.Point{}, err
	}
	return p, a.Tap(ctx, p)
}
