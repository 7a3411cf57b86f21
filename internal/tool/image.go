package tool

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	_ "golang.org/x/image/webp"
)

const (
	maxDimension = 10000
	// maxPixels bounds decoded images at roughly 100 megapixels.
	maxPixels = 100_000_000
)

type imageFormat struct {
	format imaging.Format
	ext    string
	mime   string
}

var imageFormats = map[string]imageFormat{
	"jpeg": {imaging.JPEG, ".jpg", "image/jpeg"},
	"jpg":  {imaging.JPEG, ".jpg", "image/jpeg"},
	"png":  {imaging.PNG, ".png", "image/png"},
	"gif":  {imaging.GIF, ".gif", "image/gif"},
	"tiff": {imaging.TIFF, ".tiff", "image/tiff"},
	"bmp":  {imaging.BMP, ".bmp", "image/bmp"},
}

// decodeImage decodes in with EXIF orientation applied. The returned name is
// the registered decoder name, e.g. "jpeg" or "webp".
func decodeImage(in Input) (image.Image, string, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(in.Data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s is not a supported image: %v", ErrUnsupportedInput, in.Name, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, "", fmt.Errorf("%w: %s is %dx%d, too large to process", ErrUnsupportedInput, in.Name, cfg.Width, cfg.Height)
	}
	img, err := imaging.Decode(bytes.NewReader(in.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", in.Name, err)
	}
	return img, name, nil
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	f, ok := imageFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: cannot encode %s", ErrUnsupportedInput, format)
	}
	var opts []imaging.EncodeOption
	if quality > 0 {
		opts = append(opts, imaging.JPEGQuality(quality))
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, f.format, opts...); err != nil {
		return nil, fmt.Errorf("encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// outputFormat keeps the source format when it can be written back,
// otherwise falls back to PNG.
func outputFormat(want, source string) string {
	if want != "" {
		return want
	}
	if _, ok := imageFormats[source]; ok {
		return source
	}
	return "png"
}

func imageOutput(name, suffix, format string, img image.Image, quality int) (Output, error) {
	data, err := encodeImage(img, format, quality)
	if err != nil {
		return Output{}, err
	}
	f := imageFormats[format]
	return Output{Name: baseName(name) + suffix + f.ext, MIMEType: f.mime, Data: data}, nil
}

func newResize(p Params) (Processor, error) {
	var o ResizeOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		img, src, err := decodeImage(in)
		if err != nil {
			return nil, err
		}
		var out image.Image
		if o.Fit {
			out = imaging.Fit(img, o.Width, o.Height, imaging.Lanczos)
		} else {
			out = imaging.Resize(img, o.Width, o.Height, imaging.Lanczos)
		}
		res, err := imageOutput(in.Name, "_resized", outputFormat(o.Format, src), out, 90)
		if err != nil {
			return nil, err
		}
		return []Output{res}, nil
	}), nil
}

func newConvert(p Params) (Processor, error) {
	var o ConvertOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		img, _, err := decodeImage(in)
		if err != nil {
			return nil, err
		}
		res, err := imageOutput(in.Name, "", o.Format, img, o.Quality)
		if err != nil {
			return nil, err
		}
		return []Output{res}, nil
	}), nil
}

func newThumbnail(p Params) (Processor, error) {
	var o ThumbnailOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		img, _, err := decodeImage(in)
		if err != nil {
			return nil, err
		}
		thumb := imaging.Thumbnail(img, o.Width, o.Height, imaging.Lanczos)
		res, err := imageOutput(in.Name, "_thumb", "jpeg", thumb, 85)
		if err != nil {
			return nil, err
		}
		return []Output{res}, nil
	}), nil
}

var regularFont = sync.OnceValues(func() (*truetype.Font, error) {
	return truetype.Parse(goregular.TTF)
})

func newImageWatermark(p Params) (Processor, error) {
	var o ImageWatermarkOptions
	if err := decodeOptions(p.Options, &o); err != nil {
		return nil, err
	}
	font, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("load font: %w", err)
	}
	return singleFunc(func(ctx context.Context, in Input) ([]Output, error) {
		img, src, err := decodeImage(in)
		if err != nil {
			return nil, err
		}

		dc := gg.NewContextForImage(img)
		w, h := float64(dc.Width()), float64(dc.Height())
		size := o.FontSize
		if size == 0 {
			size = max(w*0.05, 8)
		}
		dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: size}))

		x, y, ax, ay := anchor(o.Position, w, h, size)
		dc.SetRGBA(0, 0, 0, o.Opacity*0.6)
		dc.DrawStringAnchored(o.Text, x+1, y+1, ax, ay)
		dc.SetRGBA(1, 1, 1, o.Opacity)
		dc.DrawStringAnchored(o.Text, x, y, ax, ay)

		res, err := imageOutput(in.Name, "_watermarked", outputFormat("", src), dc.Image(), 90)
		if err != nil {
			return nil, err
		}
		return []Output{res}, nil
	}), nil
}

// anchor returns the draw point and anchor fractions for a watermark position.
func anchor(pos string, w, h, size float64) (x, y, ax, ay float64) {
	m := size
	switch pos {
	case PositionTopLeft:
		return m, m, 0, 1
	case PositionTopRight:
		return w - m, m, 1, 1
	case PositionBottomLeft:
		return m, h - m, 0, 0
	case PositionCenter:
		return w / 2, h / 2, 0.5, 0.5
	default:
		return w - m, h - m, 1, 0
	}
}
