// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	"gocv.io/x/gocv"

	"github.com/bureau-foundation/multibox/lib/clock"
)

// Masker produces the cleaned per-class binary masks for a frame.
// [ColorShapeDetector] implements it.
type Masker interface {
	Masks(frame *Frame) map[Class]gocv.Mat
}

// DumperConfig configures a [Dumper].
type DumperConfig struct {
	// Directory receives the PNG files. Created if missing.
	Directory string

	// Interval is the minimum time between two dumps for the same
	// bot.
	Interval time.Duration

	// Detector annotates the dumped frame. Masker, when set, adds
	// one mask image per class.
	Detector Detector
	Masker   Masker

	Clock  clock.Clock
	Logger *slog.Logger
}

// Dumper writes rate-limited diagnostic images for each bot: the raw
// frame, the frame annotated with every detected rectangle, and the
// per-class masks. Consecutive identical frames for a bot are skipped
// by content hash. Dumps are diagnostic only; nothing reads them back.
type Dumper struct {
	config DumperConfig

	mu       sync.Mutex
	lastDump map[string]time.Time
	lastHash map[string][32]byte
}

// NewDumper creates the output directory and returns a Dumper.
func NewDumper(config DumperConfig) (*Dumper, error) {
	if config.Directory == "" {
		return nil, errors.New("debug dump directory is required")
	}
	if config.Detector == nil {
		return nil, errors.New("debug dumper requires a detector")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("creating debug dump directory: %w", err)
	}
	return &Dumper{
		config:   config,
		lastDump: make(map[string]time.Time),
		lastHash: make(map[string][32]byte),
	}, nil
}

// Due reports whether a dump for name is allowed now.
func (d *Dumper) Due(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	last, ok := d.lastDump[name]
	return !ok || d.config.Clock.Now().Sub(last) >= d.config.Interval
}

// Dump writes the diagnostic set for frame if the bot's interval has
// elapsed and the frame differs from the bot's previous dump. Returns
// whether anything was written.
func (d *Dumper) Dump(name string, frame *Frame) (bool, error) {
	if frame.Empty() || !d.Due(name) {
		return false, nil
	}

	hash := blake3.Sum256(frame.Bytes())
	now := d.config.Clock.Now()

	d.mu.Lock()
	d.lastDump[name] = now
	previous, seen := d.lastHash[name]
	d.lastHash[name] = hash
	d.mu.Unlock()

	if seen && previous == hash {
		d.config.Logger.Debug("skipping unchanged debug frame", "bot", name)
		return false, nil
	}

	prefix := filepath.Join(d.config.Directory, fmt.Sprintf("%s_%s", sanitizeName(name), frame.CapturedAt().UTC().Format("20060102_150405")))

	if !gocv.IMWrite(prefix+"_frame.png", *frame.mat) {
		return false, fmt.Errorf("writing %s_frame.png", prefix)
	}

	annotated := frame.mat.Clone()
	defer annotated.Close()
	detections, err := DetectAll(d.config.Detector, frame)
	if err != nil {
		return false, fmt.Errorf("annotating dump: %w", err)
	}
	for _, class := range Classes {
		if rect, found := detections.Get(class); found {
			annotate(&annotated, rect, class.String())
		}
	}
	if !gocv.IMWrite(prefix+"_vis.png", annotated) {
		return false, fmt.Errorf("writing %s_vis.png", prefix)
	}

	if d.config.Masker != nil {
		masks := d.config.Masker.Masks(frame)
		defer func() {
			for _, mask := range masks {
				mask.Close()
			}
		}()
		for class, mask := range masks {
			path := fmt.Sprintf("%s_mask_%s.png", prefix, strings.ToLower(class.String()))
			if !gocv.IMWrite(path, mask) {
				return false, fmt.Errorf("writing %s", path)
			}
		}
	}

	d.config.Logger.Debug("wrote debug dump", "bot", name, "prefix", prefix)
	return true, nil
}

var annotationColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}

func annotate(mat *gocv.Mat, rect Rect, label string) {
	gocv.Rectangle(mat, rect.Image(), annotationColor, 2)
	origin := image.Pt(rect.X, max(0, rect.Y-6))
	gocv.PutText(mat, label, origin, gocv.FontHersheySimplex, 0.6, annotationColor, 2)
}

// sanitizeName keeps bot names usable as file name prefixes.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
