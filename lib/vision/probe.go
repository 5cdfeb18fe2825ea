// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Probe reports whether a frame shows an active session rather than a
// menu.
type Probe interface {
	InSession(frame *Frame) (bool, error)
}

// ProbeConfig configures an [EdgeDensityProbe].
type ProbeConfig struct {
	// Band is the sampled region, normally a wide strip along the
	// bottom of the window where the session overlay is drawn.
	Band Region `yaml:"band" json:"band"`

	// CannyLow and CannyHigh are the hysteresis thresholds for the
	// edge detector.
	CannyLow  float64 `yaml:"canny_low" json:"canny_low"`
	CannyHigh float64 `yaml:"canny_high" json:"canny_high"`

	// Threshold is the edge-pixel fraction above which the frame
	// counts as in-session.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// DefaultProbeConfig returns the stock band and thresholds.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Band:      Region{X0: 0.15, Y0: 0.78, X1: 0.85, Y1: 1.0},
		CannyLow:  60,
		CannyHigh: 140,
		Threshold: 0.02,
	}
}

// Validate checks the band and thresholds.
func (c ProbeConfig) Validate() error {
	if err := c.Band.Validate(); err != nil {
		return fmt.Errorf("probe band: %w", err)
	}
	if c.CannyLow < 0 || c.CannyHigh < c.CannyLow {
		return fmt.Errorf("probe canny thresholds %v/%v are invalid", c.CannyLow, c.CannyHigh)
	}
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("probe threshold must be in (0, 1), got %v", c.Threshold)
	}
	return nil
}

// EdgeDensityProbe implements [Probe] by measuring the fraction of edge
// pixels in a fixed band.
type EdgeDensityProbe struct {
	config ProbeConfig
}

// NewEdgeDensityProbe validates config and returns a probe.
func NewEdgeDensityProbe(config ProbeConfig) (*EdgeDensityProbe, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EdgeDensityProbe{config: config}, nil
}

// InSession reports whether the band's edge density exceeds the
// threshold. An empty frame is never in session.
func (p *EdgeDensityProbe) InSession(frame *Frame) (bool, error) {
	score, err := p.Score(frame)
	if err != nil {
		return false, err
	}
	return score > p.config.Threshold, nil
}

// Score returns the fraction of band pixels flagged by the Canny edge
// detector, in [0, 1].
func (p *EdgeDensityProbe) Score(frame *Frame) (float64, error) {
	if frame.Empty() {
		return 0, nil
	}
	bounds := p.config.Band.Pixels(frame.Width(), frame.Height())

	band := frame.region(bounds)
	defer band.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(band, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, float32(p.config.CannyLow), float32(p.config.CannyHigh))

	total := edges.Rows() * edges.Cols()
	if total == 0 {
		return 0, fmt.Errorf("edge map for band %v is empty", bounds)
	}
	return float64(gocv.CountNonZero(edges)) / float64(total), nil
}
