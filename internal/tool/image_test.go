package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func runSingle(t *testing.T, id ID, opts string, in Input) []Output {
	t.Helper()
	proc, _, err := DefaultRegistry().Build(id, Params{Options: json.RawMessage(opts)})
	require.NoError(t, err)
	out, err := proc.Process(context.Background(), SingleRequest{File: in})
	require.NoError(t, err)
	return out
}

func decodeOutput(t *testing.T, out Output) image.Image {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	return img
}

func TestImageResize(t *testing.T) {
	in := Input{Name: "photo.png", MIMEType: "image/png", Data: testPNG(t, 200, 100)}

	out := runSingle(t, ImageResize, `{"width":50}`, in)
	require.Len(t, out, 1)
	assert.Equal(t, "photo_resized.png", out[0].Name)
	assert.Equal(t, "image/png", out[0].MIMEType)
	b := decodeOutput(t, out[0]).Bounds()
	assert.Equal(t, 50, b.Dx())
	assert.Equal(t, 25, b.Dy())

	out = runSingle(t, ImageResize, `{"width":40,"height":40,"fit":true,"format":"jpeg"}`, in)
	assert.Equal(t, "photo_resized.jpg", out[0].Name)
	b = decodeOutput(t, out[0]).Bounds()
	assert.Equal(t, 40, b.Dx())
	assert.Equal(t, 20, b.Dy())
}

func TestImageConvert(t *testing.T) {
	in := Input{Name: "scan.png", Data: testPNG(t, 16, 16)}

	out := runSingle(t, ImageConvert, `{"format":"jpeg","quality":60}`, in)
	require.Len(t, out, 1)
	assert.Equal(t, "scan.jpg", out[0].Name)
	assert.Equal(t, "image/jpeg", out[0].MIMEType)
	_, format, err := image.DecodeConfig(bytes.NewReader(out[0].Data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestImageThumbnail(t *testing.T) {
	in := Input{Name: "big.png", Data: testPNG(t, 300, 120)}

	out := runSingle(t, ImageThumbnail, `{"width":64,"height":64}`, in)
	require.Len(t, out, 1)
	assert.Equal(t, "big_thumb.jpg", out[0].Name)
	b := decodeOutput(t, out[0]).Bounds()
	assert.Equal(t, 64, b.Dx())
	assert.Equal(t, 64, b.Dy())
}

func TestImageWatermark(t *testing.T) {
	src := testPNG(t, 160, 90)
	in := Input{Name: "slide.png", Data: src}

	for _, pos := range []string{PositionBottomRight, PositionTopLeft, PositionCenter} {
		out := runSingle(t, ImageWatermark, `{"text":"UPSA","position":"`+pos+`","opacity":1}`, in)
		require.Len(t, out, 1, pos)
		assert.Equal(t, "slide_watermarked.png", out[0].Name)
		b := decodeOutput(t, out[0]).Bounds()
		assert.Equal(t, 160, b.Dx())
		assert.NotEqual(t, src, out[0].Data)
	}
}

func TestCompress_Image(t *testing.T) {
	in := Input{Name: "poster.png", Data: testPNG(t, 64, 64)}

	out := runSingle(t, Compress, `{"quality":"strong"}`, in)
	require.Len(t, out, 1)
	assert.Equal(t, "poster_compressed.jpg", out[0].Name)
	assert.Equal(t, "image/jpeg", out[0].MIMEType)
}

func TestImageProcessors_RejectNonImages(t *testing.T) {
	proc, _, err := DefaultRegistry().Build(ImageThumbnail, Params{})
	require.NoError(t, err)

	_, err = proc.Process(context.Background(), SingleRequest{File: Input{Name: "notes.txt", Data: []byte("hello")}})
	assert.ErrorIs(t, err, ErrUnsupportedInput)
	assert.Contains(t, err.Error(), "notes.txt")
}

func TestAnchor(t *testing.T) {
	x, y, ax, ay := anchor(PositionBottomRight, 100, 50, 10)
	assert.Equal(t, []float64{90, 40, 1, 0}, []float64{x, y, ax, ay})

	x, y, ax, ay = anchor(PositionCenter, 100, 50, 10)
	assert.Equal(t, []float64{50, 25, 0.5, 0.5}, []float64{x, y, ax, ay})
}
