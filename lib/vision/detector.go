// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Detector locates a candidate rectangle for a semantic UI class in a
// frame. A miss is (Rect{}, false, nil): absence is the common case
// and not an error. Errors are reserved for failures of the detection
// machinery itself.
type Detector interface {
	Detect(frame *Frame, class Class) (Rect, bool, error)
}

// HSVRange is an inclusive range in OpenCV's 8-bit HSV space (hue
// 0-179, saturation and value 0-255).
type HSVRange struct {
	Lower [3]int `yaml:"lower" json:"lower"`
	Upper [3]int `yaml:"upper" json:"upper"`
}

// Validate checks channel bounds and ordering.
func (r HSVRange) Validate() error {
	limits := [3]int{179, 255, 255}
	for channel := 0; channel < 3; channel++ {
		low, high := r.Lower[channel], r.Upper[channel]
		if low < 0 || high > limits[channel] || low > high {
			return fmt.Errorf("hsv range %v-%v: channel %d out of bounds or inverted", r.Lower, r.Upper, channel)
		}
	}
	return nil
}

func (r HSVRange) scalars() (gocv.Scalar, gocv.Scalar) {
	lower := gocv.NewScalar(float64(r.Lower[0]), float64(r.Lower[1]), float64(r.Lower[2]), 0)
	upper := gocv.NewScalar(float64(r.Upper[0]), float64(r.Upper[1]), float64(r.Upper[2]), 0)
	return lower, upper
}

// Geometry holds the shape filters a contour must pass to count as a
// button. Areas and sizes are in pixels of the bounding box;
// rectangularity is contour area divided by bounding-box area.
type Geometry struct {
	MinArea           int     `yaml:"min_area" json:"min_area"`
	MinWidth          int     `yaml:"min_width" json:"min_width"`
	MinHeight         int     `yaml:"min_height" json:"min_height"`
	MinAspect         float64 `yaml:"min_aspect" json:"min_aspect"`
	MaxAspect         float64 `yaml:"max_aspect" json:"max_aspect"`
	MinRectangularity float64 `yaml:"min_rectangularity" json:"min_rectangularity"`
}

// Accepts applies every filter to a candidate with the given bounding
// box size and contour area.
func (g Geometry) Accepts(width, height int, contourArea float64) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	if width*height < g.MinArea {
		return false
	}
	if width < g.MinWidth || height < g.MinHeight {
		return false
	}
	aspect := float64(width) / float64(height)
	if aspect < g.MinAspect || aspect > g.MaxAspect {
		return false
	}
	return contourArea/float64(width*height) >= g.MinRectangularity
}

// ClassConfig configures detection of one class: where to look, which
// colours count, and what shape qualifies.
type ClassConfig struct {
	Region   Region     `yaml:"region" json:"region"`
	Ranges   []HSVRange `yaml:"ranges" json:"ranges"`
	Geometry Geometry   `yaml:"geometry" json:"geometry"`
}

// DetectorConfig configures a [ColorShapeDetector].
type DetectorConfig struct {
	// KernelSize is the side of the square structuring element used
	// for the morphological opening and closing.
	KernelSize      int `yaml:"kernel_size" json:"kernel_size"`
	OpenIterations  int `yaml:"open_iterations" json:"open_iterations"`
	CloseIterations int `yaml:"close_iterations" json:"close_iterations"`

	Accept    ClassConfig `yaml:"accept" json:"accept"`
	Ready     ClassConfig `yaml:"ready" json:"ready"`
	Reconnect ClassConfig `yaml:"reconnect" json:"reconnect"`
	Confirm   ClassConfig `yaml:"confirm" json:"confirm"`
}

// Colour families tuned against the default client theme.
var (
	greenRanges  = []HSVRange{{Lower: [3]int{35, 70, 70}, Upper: [3]int{85, 255, 255}}}
	blueRanges   = []HSVRange{{Lower: [3]int{90, 70, 70}, Upper: [3]int{135, 255, 255}}}
	orangeRanges = []HSVRange{
		{Lower: [3]int{10, 80, 90}, Upper: [3]int{25, 255, 255}},
		{Lower: [3]int{25, 80, 90}, Upper: [3]int{35, 255, 255}},
	}
)

// DefaultGeometry is the button shape filter shared by every class in
// the default configuration.
func DefaultGeometry() Geometry {
	return Geometry{
		MinArea:           2500,
		MinWidth:          90,
		MinHeight:         28,
		MinAspect:         2.0,
		MaxAspect:         10.0,
		MinRectangularity: 0.75,
	}
}

// DefaultDetectorConfig returns the stock regions and colour ranges.
// ACCEPT sits in the lower centre of the match popup, READY in the
// lower-right corner of the lobby, and RECONNECT/confirm dialogs in the
// middle of the window. The confirm accent colour varies, so its mask
// is the union of the orange, green and blue families.
func DefaultDetectorConfig() DetectorConfig {
	center := Region{X0: 0.25, Y0: 0.30, X1: 0.75, Y1: 0.80}

	var confirmRanges []HSVRange
	confirmRanges = append(confirmRanges, orangeRanges...)
	confirmRanges = append(confirmRanges, greenRanges...)
	confirmRanges = append(confirmRanges, blueRanges...)

	return DetectorConfig{
		KernelSize:      5,
		OpenIterations:  1,
		CloseIterations: 2,
		Accept: ClassConfig{
			Region:   Region{X0: 0.30, Y0: 0.55, X1: 0.70, Y1: 0.92},
			Ranges:   append([]HSVRange(nil), greenRanges...),
			Geometry: DefaultGeometry(),
		},
		Ready: ClassConfig{
			Region:   Region{X0: 0.62, Y0: 0.70, X1: 0.98, Y1: 0.98},
			Ranges:   append([]HSVRange(nil), greenRanges...),
			Geometry: DefaultGeometry(),
		},
		Reconnect: ClassConfig{
			Region:   center,
			Ranges:   append([]HSVRange(nil), blueRanges...),
			Geometry: DefaultGeometry(),
		},
		Confirm: ClassConfig{
			Region:   center,
			Ranges:   confirmRanges,
			Geometry: DefaultGeometry(),
		},
	}
}

// Class returns the configuration for class.
func (c DetectorConfig) Class(class Class) (ClassConfig, error) {
	switch class {
	case ClassAccept:
		return c.Accept, nil
	case ClassReady:
		return c.Ready, nil
	case ClassReconnect:
		return c.Reconnect, nil
	case ClassConfirm:
		return c.Confirm, nil
	default:
		return ClassConfig{}, fmt.Errorf("unknown detection class %v", class)
	}
}

// Validate checks every class configuration.
func (c DetectorConfig) Validate() error {
	if c.KernelSize < 1 {
		return fmt.Errorf("detector kernel_size must be at least 1, got %d", c.KernelSize)
	}
	if c.OpenIterations < 0 || c.CloseIterations < 0 {
		return fmt.Errorf("detector iterations must not be negative")
	}
	for _, class := range Classes {
		classConfig, _ := c.Class(class)
		if err := classConfig.Region.Validate(); err != nil {
			return fmt.Errorf("detector %s: %w", class, err)
		}
		if len(classConfig.Ranges) == 0 {
			return fmt.Errorf("detector %s: at least one colour range is required", class)
		}
		for _, hsvRange := range classConfig.Ranges {
			if err := hsvRange.Validate(); err != nil {
				return fmt.Errorf("detector %s: %w", class, err)
			}
		}
		if classConfig.Geometry.MaxAspect < classConfig.Geometry.MinAspect {
			return fmt.Errorf("detector %s: max_aspect is below min_aspect", class)
		}
	}
	return nil
}

// ColorShapeDetector implements [Detector] with region-restricted
// colour thresholding and contour shape filtering.
type ColorShapeDetector struct {
	config DetectorConfig
}

// NewColorShapeDetector validates config and returns a detector.
func NewColorShapeDetector(config DetectorConfig) (*ColorShapeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &ColorShapeDetector{config: config}, nil
}

// Detect returns the largest qualifying blob for class in full-frame
// coordinates.
func (d *ColorShapeDetector) Detect(frame *Frame, class Class) (Rect, bool, error) {
	if frame.Empty() {
		return Rect{}, false, nil
	}
	classConfig, err := d.config.Class(class)
	if err != nil {
		return Rect{}, false, err
	}

	mask, origin := d.mask(frame, classConfig)
	defer mask.Close()

	best, found := largestQualifying(mask, classConfig.Geometry)
	if !found {
		return Rect{}, false, nil
	}
	return best.Translate(origin.X, origin.Y), true, nil
}

// DetectAll runs detector for every class.
func DetectAll(detector Detector, frame *Frame) (DetectionResult, error) {
	var result DetectionResult
	for _, class := range Classes {
		rect, found, err := detector.Detect(frame, class)
		if err != nil {
			return DetectionResult{}, fmt.Errorf("detecting %s: %w", class, err)
		}
		if found {
			result.Set(class, rect)
		}
	}
	return result, nil
}

// Masks returns the cleaned binary mask for every class, in ROI
// coordinates, keyed by class. The caller owns the returned matrices.
func (d *ColorShapeDetector) Masks(frame *Frame) map[Class]gocv.Mat {
	masks := make(map[Class]gocv.Mat, len(Classes))
	if frame.Empty() {
		return masks
	}
	for _, class := range Classes {
		classConfig, _ := d.config.Class(class)
		mask, _ := d.mask(frame, classConfig)
		masks[class] = mask
	}
	return masks
}

// mask crops the class region, thresholds it against the union of the
// configured colour ranges and cleans the result. Returns the mask and
// the region's top-left corner in frame coordinates.
func (d *ColorShapeDetector) mask(frame *Frame, classConfig ClassConfig) (gocv.Mat, image.Point) {
	bounds := classConfig.Region.Pixels(frame.Width(), frame.Height())

	roi := frame.region(bounds)
	defer roi.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(roi, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), bounds.Dy(), bounds.Dx(), gocv.MatTypeCV8U)
	inRange := gocv.NewMat()
	defer inRange.Close()
	for _, hsvRange := range classConfig.Ranges {
		lower, upper := hsvRange.scalars()
		gocv.InRangeWithScalar(hsv, lower, upper, &inRange)
		gocv.BitwiseOr(mask, inRange, &mask)
	}

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(d.config.KernelSize, d.config.KernelSize))
	defer kernel.Close()
	if d.config.OpenIterations > 0 {
		gocv.MorphologyExWithParams(mask, &mask, gocv.MorphOpen, kernel, d.config.OpenIterations, gocv.BorderConstant)
	}
	if d.config.CloseIterations > 0 {
		gocv.MorphologyExWithParams(mask, &mask, gocv.MorphClose, kernel, d.config.CloseIterations, gocv.BorderConstant)
	}
	return mask, bounds.Min
}

// largestQualifying extracts external contours from mask and returns
// the bounding box of the largest one that passes geometry. Ties keep
// the first contour found.
func largestQualifying(mask gocv.Mat, geometry Geometry) (Rect, bool) {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var best Rect
	found := false
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		box := RectFromImage(gocv.BoundingRect(contour))
		if !geometry.Accepts(box.Width, box.Height, gocv.ContourArea(contour)) {
			continue
		}
		if !found || box.Area() > best.Area() {
			best = box
			found = true
		}
	}
	return best, found
}
