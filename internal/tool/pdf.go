package tool

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"dochub/internal/model"
)

const mimePDF = "application/pdf"

func init() {
	// Keep pdfcpu from creating a config dir under the service user's home.
	api.DisableConfigDir()
}

func pdfConf() *pdfmodel.Configuration {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return conf
}

func isPDF(data []byte) bool {
	return mimetype.Detect(data).Is(mimePDF)
}

func requirePDF(in Input) error {
	if !isPDF(in.Data) {
		return fmt.Errorf("%w: %s is not a PDF document", ErrUnsupportedInput, in.Name)
	}
	return nil
}

// baseName strips directory and extension from an upload name.
func baseName(name string) string {
	b := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if b == "" || b == "." || b == "/" {
		return "document"
	}
	return b
}

func pdfOutput(name string, buf *bytes.Buffer) Output {
	return Output{Name: name, MIMEType: mimePDF, Data: buf.Bytes()}
}

func parseRange(r string) (from, thru int) {
	lo, hi, found := strings.Cut(r, "-")
	from, _ = strconv.Atoi(lo)
	if !found {
		return from, from
	}
	thru, _ = strconv.Atoi(hi)
	return from, thru
}

// checkSelection rejects page selections that reach past the end of a
// document with pages pages. An empty selection means every page.
func checkSelection(sel []string, pages int) error {
	for _, raw := range sel {
		r := strings.TrimSpace(raw)
		var from, thru int
		switch {
		case r == "even":
			from, thru = 2, 2
		case r == "odd":
			from, thru = 1, 1
		case strings.HasPrefix(r, "-"):
			from = 1
			thru, _ = strconv.Atoi(r[1:])
		case strings.HasSuffix(r, "-"):
			from, _ = strconv.Atoi(strings.TrimSuffix(r, "-"))
			thru = from
		default:
			from, thru = parseRange(r)
		}
		if from < 1 || thru < from || thru > pages {
			return fmt.Errorf("%w: page selection %s is outside the document's %d page(s)", ErrInvalidOptions, r, pages)
		}
	}
	return nil
}

// selectionFor counts the pages of data and checks sel against them.
func selectionFor(data []byte, sel []string, conf *pdfmodel.Configuration) error {
	if len(sel) == 0 {
		return nil
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return fmt.Errorf("count pages: %w", err)
	}
	return checkSelection(sel, pages)
}

func newMerge(p Params) (Processor, error) {
	var o MergeOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return mergeFunc(func(ctx context.Context, primary Input, additional []Input) ([]Output, error) {
		docs := append([]Input{primary}, additional...)
		rsc := make([]io.ReadSeeker, 0, len(docs))
		for _, d := range docs {
			if err := requirePDF(d); err != nil {
				return nil, err
			}
			rsc = append(rsc, bytes.NewReader(d.Data))
		}
		var buf bytes.Buffer
		if err := api.MergeRaw(rsc, &buf, o.DividerPage, pdfConf()); err != nil {
			return nil, fmt.Errorf("merge pdf: %w", err)
		}
		return []Output{pdfOutput(o.OutputName, &buf)}, nil
	}), nil
}

func newSplit(p Params) (Processor, error) {
	var o SplitOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		pages, err := api.PageCount(bytes.NewReader(in.Data), conf)
		if err != nil {
			return nil, fmt.Errorf("count pages: %w", err)
		}

		ranges := o.Ranges
		if len(ranges) == 0 {
			ranges = spanRanges(pages, o.Span)
		}

		base := baseName(in.Name)
		out := make([]Output, 0, len(ranges))
		for i, r := range ranges {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			r = strings.TrimSpace(r)
			if _, thru := parseRange(r); thru > pages {
				return nil, fmt.Errorf("%w: range %s exceeds %d pages", ErrInvalidOptions, r, pages)
			}
			var buf bytes.Buffer
			if err := api.Trim(bytes.NewReader(in.Data), &buf, []string{r}, conf); err != nil {
				return nil, fmt.Errorf("split range %s: %w", r, err)
			}
			out = append(out, pdfOutput(fmt.Sprintf("%s_part%d.pdf", base, i+1), &buf))
		}
		return out, nil
	}), nil
}

// spanRanges partitions pages into consecutive chunks of span pages.
func spanRanges(pages, span int) []string {
	var out []string
	for from := 1; from <= pages; from += span {
		thru := min(from+span-1, pages)
		if from == thru {
			out = append(out, strconv.Itoa(from))
		} else {
			out = append(out, fmt.Sprintf("%d-%d", from, thru))
		}
	}
	return out
}

func newCompress(p Params) (Processor, error) {
	var o CompressOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		base := baseName(in.Name)
		if isPDF(in.Data) {
			var buf bytes.Buffer
			if err := api.Optimize(bytes.NewReader(in.Data), &buf, pdfConf()); err != nil {
				return nil, fmt.Errorf("optimize pdf: %w", err)
			}
			return []Output{pdfOutput(base+"_compressed.pdf", &buf)}, nil
		}

		img, _, err := decodeImage(in)
		if err != nil {
			return nil, err
		}
		data, err := encodeImage(img, "jpeg", jpegQuality[o.Quality])
		if err != nil {
			return nil, err
		}
		return []Output{{Name: base + "_compressed.jpg", MIMEType: "image/jpeg", Data: data}}, nil
	}), nil
}

func newRotate(p Params) (Processor, error) {
	var o RotateOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		if err := selectionFor(in.Data, o.Pages, conf); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := api.Rotate(bytes.NewReader(in.Data), &buf, o.Angle, o.Pages, conf); err != nil {
			return nil, fmt.Errorf("rotate pdf: %w", err)
		}
		return []Output{pdfOutput(baseName(in.Name)+"_rotated.pdf", &buf)}, nil
	}), nil
}

func newExtract(p Params) (Processor, error) {
	var o ExtractOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		if err := selectionFor(in.Data, o.Pages, conf); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := api.Trim(bytes.NewReader(in.Data), &buf, o.Pages, conf); err != nil {
			return nil, fmt.Errorf("extract pages: %w", err)
		}
		if buf.Len() == 0 {
			return nil, fmt.Errorf("extract pages: no pages selected from %s", in.Name)
		}
		return []Output{pdfOutput(baseName(in.Name)+"_extracted.pdf", &buf)}, nil
	}), nil
}

func newProtect(p Params) (Processor, error) {
	var o ProtectOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfmodel.NewAESConfiguration(o.Password, o.OwnerPassword, 256)
		conf.ValidationMode = pdfmodel.ValidationRelaxed
		var buf bytes.Buffer
		if err := api.Encrypt(bytes.NewReader(in.Data), &buf, conf); err != nil {
			return nil, fmt.Errorf("encrypt pdf: %w", err)
		}
		return []Output{pdfOutput(baseName(in.Name)+"_protected.pdf", &buf)}, nil
	}), nil
}

func newUnlock(p Params) (Processor, error) {
	var o UnlockOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		conf.UserPW = o.Password
		conf.OwnerPW = o.Password
		var buf bytes.Buffer
		if err := api.Decrypt(bytes.NewReader(in.Data), &buf, conf); err != nil {
			return nil, fmt.Errorf("decrypt pdf: %w", err)
		}
		return []Output{pdfOutput(baseName(in.Name)+"_unlocked.pdf", &buf)}, nil
	}), nil
}

func newWatermark(p Params) (Processor, error) {
	var o WatermarkOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("fontname:Helvetica, points:%d, rotation:%g, opacity:%g, fillcolor:%s, scalefactor:1 abs",
		o.FontSize, *o.Rotation, o.Opacity, o.Color)
	wm, err := api.TextWatermark(o.Text, desc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		if err := selectionFor(in.Data, o.Pages, conf); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := api.AddWatermarks(bytes.NewReader(in.Data), &buf, o.Pages, wm, conf); err != nil {
			return nil, fmt.Errorf("watermark pdf: %w", err)
		}
		return []Output{pdfOutput(baseName(in.Name)+"_watermarked.pdf", &buf)}, nil
	}), nil
}

type pageStamp struct {
	page int
	wm   *pdfmodel.Watermark
}

// newAnnotate turns every annotation into a positioned text stamp up front,
// so malformed annotations are rejected before any document is read.
func newAnnotate(p Params) (Processor, error) {
	o := AnnotateOptions{Annotations: append([]model.Annotation(nil), p.Annotations...)}
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}

	stamps := make([]pageStamp, 0, len(o.Annotations))
	for _, a := range o.Annotations {
		text, desc := annotationStamp(a, o.FontSize)
		wm, err := api.TextWatermark(text, desc, true, false, types.POINTS)
		if err != nil {
			return nil, fmt.Errorf("%w: annotation %s: %v", ErrInvalidOptions, a.ID, err)
		}
		stamps = append(stamps, pageStamp{page: a.Page, wm: wm})
	}

	return annotatedFunc(func(ctx context.Context, in Input) ([]Output, error) {
		if err := requirePDF(in); err != nil {
			return nil, err
		}
		conf := pdfConf()
		pages, err := api.PageCount(bytes.NewReader(in.Data), conf)
		if err != nil {
			return nil, fmt.Errorf("count pages: %w", err)
		}

		cur := in.Data
		for _, s := range stamps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if s.page > pages {
				return nil, fmt.Errorf("%w: annotation on page %d, document has %d pages", ErrInvalidOptions, s.page, pages)
			}
			var buf bytes.Buffer
			if err := api.AddWatermarks(bytes.NewReader(cur), &buf, []string{strconv.Itoa(s.page)}, s.wm, conf); err != nil {
				return nil, fmt.Errorf("annotate page %d: %w", s.page, err)
			}
			cur = buf.Bytes()
		}
		return []Output{{Name: baseName(in.Name) + "_annotated.pdf", MIMEType: mimePDF, Data: cur}}, nil
	}), nil
}

func annotationStamp(a model.Annotation, fontSize int) (text, desc string) {
	text = a.Text
	fill, bg, opacity := a.Color, "", 1.0
	switch a.Type {
	case AnnotationNote:
		text = "Note: " + a.Text
	case AnnotationHighlight:
		fill, bg, opacity = "#000000", a.Color, 0.6
	}
	desc = fmt.Sprintf("fontname:Helvetica, points:%d, position:bl, offset:%g %g, fillcolor:%s, rotation:0, opacity:%g, scalefactor:1 abs",
		fontSize, a.Position.X, a.Position.Y, fill, opacity)
	if bg != "" {
		desc += ", backgroundcolor:" + bg
	}
	return text, desc
}

func newImagesToPDF(p Params) (Processor, error) {
	var o ImagesToPDFOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	imp, err := api.Import(fmt.Sprintf("formsize:%s, position:c, scalefactor:0.9 rel", o.PageSize), types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return aggregateFunc(func(ctx context.Context, items []Input) ([]Output, error) {
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: no images supplied", ErrUnsupportedInput)
		}
		readers := make([]io.Reader, 0, len(items))
		for _, it := range items {
			r, err := pdfReadyImage(it)
			if err != nil {
				return nil, err
			}
			readers = append(readers, r)
		}
		var buf bytes.Buffer
		if err := api.ImportImages(nil, &buf, readers, imp, pdfConf()); err != nil {
			return nil, fmt.Errorf("import images: %w", err)
		}
		return []Output{pdfOutput(o.OutputName, &buf)}, nil
	}), nil
}

// pdfReadyImage passes JPEG and PNG through untouched and re-encodes every
// other decodable format as PNG.
func pdfReadyImage(in Input) (io.Reader, error) {
	m := mimetype.Detect(in.Data)
	if m.Is("image/jpeg") || m.Is("image/png") {
		return bytes.NewReader(in.Data), nil
	}
	img, _, err := decodeImage(in)
	if err != nil {
		return nil, err
	}
	data, err := encodeImage(img, "png", 0)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
