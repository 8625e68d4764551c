package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"spine-analyzer-go/pkg/models"

	"github.com/gabriel-vasile/mimetype"
)

// defaultMediaType тип по умолчанию для data URL без явного MIME (RFC 2397)
const defaultMediaType = "text/plain;charset=US-ASCII"

// File загруженный или восстановленный файл изображения
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size размер содержимого в байтах
func (f File) Size() int64 {
	return int64(len(f.Data))
}

// EncodeImage кодирует файл в data URL вида data:<mime>;base64,<payload>
func EncodeImage(f File) (string, error) {
	if f.Data == nil {
		return "", &models.EncodingError{Op: "encode image", Err: errors.New("file has no content")}
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = DetectContentType(f.Data)
	}
	if strings.ContainsAny(contentType, ",") {
		return "", &models.EncodingError{Op: "encode image", Err: fmt.Errorf("invalid content type %q", contentType)}
	}

	var sb strings.Builder
	sb.Grow(len("data:;base64,") + len(contentType) + base64.StdEncoding.EncodedLen(len(f.Data)))
	sb.WriteString("data:")
	sb.WriteString(contentType)
	sb.WriteString(";base64,")
	sb.WriteString(base64.StdEncoding.EncodeToString(f.Data))
	return sb.String(), nil
}

// DecodeImage восстанавливает файл из data URL с исходным MIME-типом
func DecodeImage(dataURL, filename string) (File, error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return File{}, &models.EncodingError{Op: "decode image", Err: errors.New("not a data URL")}
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return File{}, &models.EncodingError{Op: "decode image", Err: errors.New("data URL has no payload separator")}
	}

	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		mediaType = defaultMediaType
	}

	var data []byte
	var err error
	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var unescaped string
		unescaped, err = url.PathUnescape(payload)
		data = []byte(unescaped)
	}
	if err != nil {
		return File{}, &models.EncodingError{Op: "decode image", Err: err}
	}

	return File{
		Name:        filename,
		ContentType: mediaType,
		Data:        data,
	}, nil
}

// MediaType извлекает MIME-тип из data URL без декодирования содержимого
func MediaType(dataURL string) string {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ""
	}
	meta, _, _ := strings.Cut(rest, ",")
	mediaType, _ := strings.CutSuffix(meta, ";base64")
	if mediaType == "" {
		return defaultMediaType
	}
	return mediaType
}

// DetectContentType определяет MIME-тип по содержимому, без параметров
func DetectContentType(data []byte) string {
	detected := mimetype.Detect(data).String()
	base, _, _ := strings.Cut(detected, ";")
	return strings.TrimSpace(base)
}
