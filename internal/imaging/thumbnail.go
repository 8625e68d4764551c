package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"spine-analyzer-go/internal/codec"
	"spine-analyzer-go/pkg/models"

	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Orientation читает EXIF-ориентацию, 1 при ее отсутствии
func Orientation(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	value, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return value
}

// Orient приводит изображение к нормальной ориентации по значению EXIF 1..8
func Orient(img image.Image, orientation int) image.Image {
	if orientation < 2 || orientation > 8 {
		return img
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	transposed := orientation >= 5

	dw, dh := w, h
	if transposed {
		dw, dh = h, w
	}
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var dx, dy int
			switch orientation {
			case 2: // отражение по горизонтали
				dx, dy = w-1-x, y
			case 3: // поворот на 180
				dx, dy = w-1-x, h-1-y
			case 4: // отражение по вертикали
				dx, dy = x, h-1-y
			case 5: // транспонирование
				dx, dy = y, x
			case 6: // поворот на 90 по часовой
				dx, dy = h-1-y, x
			case 7: // обратное транспонирование
				dx, dy = h-1-y, w-1-x
			case 8: // поворот на 90 против часовой
				dx, dy = y, w-1-x
			}
			out.Set(dx, dy, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return out
}

// Thumbnail уменьшает изображение так, чтобы большая сторона не превышала maxSize, и кодирует в PNG.
// Изображения меньше maxSize не увеличиваются.
func Thumbnail(f codec.File, maxSize int) (codec.File, error) {
	if maxSize <= 0 {
		return codec.File{}, &models.EncodingError{Op: "thumbnail", Err: fmt.Errorf("invalid size %d", maxSize)}
	}

	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return codec.File{}, &models.EncodingError{Op: "thumbnail", Err: fmt.Errorf("failed to decode image: %w", err)}
	}
	img = Orient(img, Orientation(f.Data))

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if w > maxSize || h > maxSize {
		scale = float64(maxSize) / float64(max(w, h))
	}
	nw, nh := max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return codec.File{}, &models.EncodingError{Op: "thumbnail", Err: fmt.Errorf("failed to encode thumbnail: %w", err)}
	}

	stem, _, _ := strings.Cut(f.Name, ".")
	return codec.File{
		Name:        stem + "_thumb.png",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}
