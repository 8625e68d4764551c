package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodedSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func TestThumbnailScalesDown(t *testing.T) {
	thumb, err := Thumbnail(codec.File{Name: "scan_slice_3.png", Data: encodePNG(t, gradient(200, 100))}, 50)
	require.NoError(t, err)

	assert.Equal(t, "scan_slice_3_thumb.png", thumb.Name)
	assert.Equal(t, "image/png", thumb.ContentType)
	w, h := decodedSize(t, thumb.Data)
	assert.Equal(t, 50, w)
	assert.Equal(t, 25, h)
}

func TestThumbnailKeepsSmallImages(t *testing.T) {
	thumb, err := Thumbnail(codec.File{Name: "a.png", Data: encodePNG(t, gradient(20, 10))}, 256)
	require.NoError(t, err)
	w, h := decodedSize(t, thumb.Data)
	assert.Equal(t, 20, w)
	assert.Equal(t, 10, h)
}

func TestThumbnailDecodesBMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, gradient(64, 32)))

	thumb, err := Thumbnail(codec.File{Name: "legacy.bmp", Data: buf.Bytes()}, 16)
	require.NoError(t, err)
	w, h := decodedSize(t, thumb.Data)
	assert.Equal(t, 16, w)
	assert.Equal(t, 8, h)
}

func TestThumbnailRejectsGarbage(t *testing.T) {
	_, err := Thumbnail(codec.File{Name: "a.dcm", Data: []byte("not an image")}, 64)
	var encErr *models.EncodingError
	assert.ErrorAs(t, err, &encErr)

	_, err = Thumbnail(codec.File{Name: "a.png", Data: encodePNG(t, gradient(2, 2))}, 0)
	assert.ErrorAs(t, err, &encErr)
}

func TestOrient(t *testing.T) {
	src := gradient(3, 2)
	marker := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	src.Set(0, 0, marker)

	testCases := []struct {
		orientation int
		w, h        int
		x, y        int
	}{
		{1, 3, 2, 0, 0},
		{2, 3, 2, 2, 0},
		{3, 3, 2, 2, 1},
		{4, 3, 2, 0, 1},
		{5, 2, 3, 0, 0},
		{6, 2, 3, 1, 0},
		{7, 2, 3, 1, 2},
		{8, 2, 3, 0, 2},
	}

	for _, tc := range testCases {
		out := Orient(src, tc.orientation)
		assert.Equal(t, tc.w, out.Bounds().Dx(), "orientation %d", tc.orientation)
		assert.Equal(t, tc.h, out.Bounds().Dy(), "orientation %d", tc.orientation)
		r, g, b, _ := out.At(tc.x, tc.y).RGBA()
		assert.Equal(t, uint32(0xffff), r&g&b, "orientation %d", tc.orientation)
	}
}

func TestOrientationWithoutExif(t *testing.T) {
	assert.Equal(t, 1, Orientation(encodePNG(t, gradient(2, 2))))
}
