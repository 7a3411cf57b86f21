package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"dochub/internal/model"
)

type options interface {
	applyDefaults()
	Validate() error
}

// decodeOptions strictly decodes raw into dst, applies defaults and validates.
// An empty or null payload yields the defaults.
func decodeOptions(raw json.RawMessage, dst options) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.DisallowUnknownFields()
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
		}
	}
	dst.applyDefaults()
	if err := dst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

var (
	pageSelection = regexp.MustCompile(`^(\d+(-\d*)?|-\d+|even|odd)$`)
	hexColor      = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	pageRange     = regexp.MustCompile(`^\d+(-\d+)?$`)
)

func validatePages(pages []string) error {
	for _, p := range pages {
		if !pageSelection.MatchString(strings.TrimSpace(p)) {
			return fmt.Errorf("invalid page selection %q", p)
		}
	}
	return nil
}

func pdfName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fallback
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// MergeOptions configure pdf-merge.
type MergeOptions struct {
	OutputName  string `json:"outputName"`
	DividerPage bool   `json:"dividerPage"`
}

func (o *MergeOptions) applyDefaults() {
	o.OutputName = pdfName(o.OutputName, "merged.pdf")
}

func (o *MergeOptions) Validate() error {
	if strings.ContainsAny(o.OutputName, `/\`) {
		return errors.New("outputName must not contain path separators")
	}
	return nil
}

// SplitOptions configure pdf-split. Ranges, when present, override Span.
type SplitOptions struct {
	Span   int      `json:"span"`
	Ranges []string `json:"ranges"`
}

func (o *SplitOptions) applyDefaults() {
	if o.Span == 0 {
		o.Span = 1
	}
}

func (o *SplitOptions) Validate() error {
	if o.Span < 1 {
		return errors.New("span must be at least 1")
	}
	for _, r := range o.Ranges {
		if !pageRange.MatchString(strings.TrimSpace(r)) {
			return fmt.Errorf("invalid range %q", r)
		}
		from, thru := parseRange(strings.TrimSpace(r))
		if from < 1 || thru < from {
			return fmt.Errorf("invalid range %q", r)
		}
	}
	return nil
}

// Compression levels map to JPEG quality for raster input.
const (
	QualityLight    = "light"
	QualityBalanced = "balanced"
	QualityStrong   = "strong"
)

var jpegQuality = map[string]int{
	QualityLight:    85,
	QualityBalanced: 70,
	QualityStrong:   50,
}

// CompressOptions configure compress.
type CompressOptions struct {
	Quality string `json:"quality"`
}

func (o *CompressOptions) applyDefaults() {
	if o.Quality == "" {
		o.Quality = QualityBalanced
	}
}

func (o *CompressOptions) Validate() error {
	if _, ok := jpegQuality[o.Quality]; !ok {
		return fmt.Errorf("quality must be one of light, balanced, strong")
	}
	return nil
}

// RotateOptions configure pdf-rotate. Empty Pages means every page.
type RotateOptions struct {
	Angle int      `json:"angle"`
	Pages []string `json:"pages"`
}

func (o *RotateOptions) applyDefaults() {
	if o.Angle == 0 {
		o.Angle = 90
	}
}

func (o *RotateOptions) Validate() error {
	if o.Angle%90 != 0 || o.Angle < -270 || o.Angle > 270 {
		return fmt.Errorf("angle must be a multiple of 90 between -270 and 270")
	}
	return validatePages(o.Pages)
}

// ExtractOptions configure pdf-extract-pages.
type ExtractOptions struct {
	Pages []string `json:"pages"`
}

func (o *ExtractOptions) applyDefaults() {}

func (o *ExtractOptions) Validate() error {
	if len(o.Pages) == 0 {
		return errors.New("pages is required")
	}
	return validatePages(o.Pages)
}

// ProtectOptions configure pdf-protect.
type ProtectOptions struct {
	Password      string `json:"password"`
	OwnerPassword string `json:"ownerPassword"`
}

func (o *ProtectOptions) applyDefaults() {
	if o.OwnerPassword == "" {
		o.OwnerPassword = o.Password
	}
}

func (o *ProtectOptions) Validate() error {
	if len(o.Password) < 4 {
		return errors.New("password must be at least 4 characters")
	}
	return nil
}

// UnlockOptions configure pdf-unlock.
type UnlockOptions struct {
	Password string `json:"password"`
}

func (o *UnlockOptions) applyDefaults() {}

func (o *UnlockOptions) Validate() error {
	if o.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// WatermarkOptions configure pdf-watermark.
type WatermarkOptions struct {
	Text     string   `json:"text"`
	FontSize int      `json:"fontSize"`
	Opacity  float64  `json:"opacity"`
	Rotation *float64 `json:"rotation"`
	Color    string   `json:"color"`
	Pages    []string `json:"pages"`
}

func (o *WatermarkOptions) applyDefaults() {
	if o.FontSize == 0 {
		o.FontSize = 48
	}
	if o.Opacity == 0 {
		o.Opacity = 0.3
	}
	if o.Rotation == nil {
		r := 45.0
		o.Rotation = &r
	}
	if o.Color == "" {
		o.Color = "#808080"
	}
}

func (o *WatermarkOptions) Validate() error {
	if strings.TrimSpace(o.Text) == "" {
		return errors.New("text is required")
	}
	if o.FontSize < 4 || o.FontSize > 400 {
		return errors.New("fontSize must be between 4 and 400")
	}
	if o.Opacity <= 0 || o.Opacity > 1 {
		return errors.New("opacity must be in (0, 1]")
	}
	if *o.Rotation < -180 || *o.Rotation > 180 {
		return errors.New("rotation must be between -180 and 180")
	}
	if !hexColor.MatchString(o.Color) {
		return fmt.Errorf("invalid color %q", o.Color)
	}
	return validatePages(o.Pages)
}

// Annotation kinds understood by pdf-annotate.
const (
	AnnotationText      = "text"
	AnnotationNote      = "note"
	AnnotationHighlight = "highlight"
)

var annotationColors = map[string]string{
	AnnotationText:      "#000000",
	AnnotationNote:      "#1F4E9C",
	AnnotationHighlight: "#FFEB3B",
}

// AnnotateOptions configure pdf-annotate. Annotations come from the request's
// separate annotation list, not from the options payload.
type AnnotateOptions struct {
	FontSize    int                `json:"fontSize"`
	Annotations []model.Annotation `json:"-"`
}

func (o *AnnotateOptions) applyDefaults() {
	if o.FontSize == 0 {
		o.FontSize = 12
	}
	for i := range o.Annotations {
		a := &o.Annotations[i]
		if a.Color == "" {
			a.Color = annotationColors[a.Type]
		}
	}
}

func (o *AnnotateOptions) Validate() error {
	if o.FontSize < 4 || o.FontSize > 96 {
		return errors.New("fontSize must be between 4 and 96")
	}
	if len(o.Annotations) == 0 {
		return errors.New("at least one annotation is required")
	}
	for _, a := range o.Annotations {
		if _, ok := annotationColors[a.Type]; !ok {
			return fmt.Errorf("annotation %s: unknown type %q", a.ID, a.Type)
		}
		if a.Page < 1 {
			return fmt.Errorf("annotation %s: page must be at least 1", a.ID)
		}
		if a.Position.X < 0 || a.Position.Y < 0 {
			return fmt.Errorf("annotation %s: position must not be negative", a.ID)
		}
		if strings.TrimSpace(a.Text) == "" {
			return fmt.Errorf("annotation %s: text is required", a.ID)
		}
		if !hexColor.MatchString(a.Color) {
			return fmt.Errorf("annotation %s: invalid color %q", a.ID, a.Color)
		}
	}
	return nil
}

var pageSizes = map[string]bool{"A3": true, "A4": true, "A5": true, "Letter": true, "Legal": true}

// ImagesToPDFOptions configure images-to-pdf.
type ImagesToPDFOptions struct {
	PageSize   string `json:"pageSize"`
	OutputName string `json:"outputName"`
}

func (o *ImagesToPDFOptions) applyDefaults() {
	if o.PageSize == "" {
		o.PageSize = "A4"
	}
	o.OutputName = pdfName(o.OutputName, "images.pdf")
}

func (o *ImagesToPDFOptions) Validate() error {
	if !pageSizes[o.PageSize] {
		return fmt.Errorf("unsupported pageSize %q", o.PageSize)
	}
	if strings.ContainsAny(o.OutputName, `/\`) {
		return errors.New("outputName must not contain path separators")
	}
	return nil
}

// ResizeOptions configure image-resize. A zero dimension preserves the aspect ratio.
type ResizeOptions struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Fit    bool   `json:"fit"`
	Format string `json:"format"`
}

func (o *ResizeOptions) applyDefaults() {
	o.Format = strings.ToLower(o.Format)
}

func (o *ResizeOptions) Validate() error {
	if o.Width < 0 || o.Height < 0 || o.Width > maxDimension || o.Height > maxDimension {
		return fmt.Errorf("width and height must be between 0 and %d", maxDimension)
	}
	if o.Width == 0 && o.Height == 0 {
		return errors.New("width or height is required")
	}
	if o.Fit && (o.Width == 0 || o.Height == 0) {
		return errors.New("fit requires both width and height")
	}
	if o.Format != "" {
		if _, ok := imageFormats[o.Format]; !ok {
			return fmt.Errorf("unsupported format %q", o.Format)
		}
	}
	return nil
}

// ConvertOptions configure image-convert.
type ConvertOptions struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

func (o *ConvertOptions) applyDefaults() {
	o.Format = strings.ToLower(o.Format)
	if o.Quality == 0 {
		o.Quality = 90
	}
}

func (o *ConvertOptions) Validate() error {
	if o.Format == "" {
		return errors.New("format is required")
	}
	if _, ok := imageFormats[o.Format]; !ok {
		return fmt.Errorf("unsupported format %q", o.Format)
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errors.New("quality must be between 1 and 100")
	}
	return nil
}

// ThumbnailOptions configure image-thumbnail.
type ThumbnailOptions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (o *ThumbnailOptions) applyDefaults() {
	if o.Width == 0 {
		o.Width = 200
	}
	if o.Height == 0 {
		o.Height = 200
	}
}

func (o *ThumbnailOptions) Validate() error {
	if o.Width < 1 || o.Height < 1 || o.Width > 2000 || o.Height > 2000 {
		return errors.New("width and height must be between 1 and 2000")
	}
	return nil
}

// Watermark anchors for image-watermark.
const (
	PositionBottomRight = "bottom-right"
	PositionBottomLeft  = "bottom-left"
	PositionTopLeft     = "top-left"
	PositionTopRight    = "top-right"
	PositionCenter      = "center"
)

// ImageWatermarkOptions configure image-watermark. A zero FontSize scales
// the text to 5% of the image width.
type ImageWatermarkOptions struct {
	Text     string  `json:"text"`
	Position string  `json:"position"`
	Opacity  float64 `json:"opacity"`
	FontSize float64 `json:"fontSize"`
}

func (o *ImageWatermarkOptions) applyDefaults() {
	if o.Position == "" {
		o.Position = PositionBottomRight
	}
	if o.Opacity == 0 {
		o.Opacity = 0.5
	}
}

func (o *ImageWatermarkOptions) Validate() error {
	if strings.TrimSpace(o.Text) == "" {
		return errors.New("text is required")
	}
	switch o.Position {
	case PositionBottomRight, PositionBottomLeft, PositionTopLeft, PositionTopRight, PositionCenter:
	default:
		return fmt.Errorf("unsupported position %q", o.Position)
	}
	if o.Opacity <= 0 || o.Opacity > 1 {
		return errors.New("opacity must be in (0, 1]")
	}
	if o.FontSize < 0 || o.FontSize > 500 {
		return errors.New("fontSize must be between 0 and 500")
	}
	return nil
}
