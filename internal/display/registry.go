// Package display hands out transient URLs for image bytes shown in a viewer.
// A URL stays valid until its handle is released.
package display

import (
	"errors"
	"strings"
	"sync"

	"spine-analyzer-go/internal/codec"

	"github.com/google/uuid"
)

// ErrEmptySource источник без данных и без URL
var ErrEmptySource = errors.New("display source has neither data nor url")

// Source то, что нужно показать: бинарные данные или готовый URL
type Source struct {
	File codec.File
	URL  string
}

// IsBinary сообщает, требует ли источник выделения временного URL
func (s Source) IsBinary() bool {
	return s.URL == "" && s.File.Data != nil
}

// Blob содержимое временного URL
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

// Handle выданный URL и способ его освободить
type Handle struct {
	URL string

	once    sync.Once
	release func()
}

// Release освобождает URL. Повторный вызов ничего не делает.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.release != nil {
			h.release()
		}
	})
}

// Registry хранит выделенные временные URL
type Registry struct {
	basePath string

	mu    sync.RWMutex
	blobs map[string]Blob
}

// NewRegistry создает реестр, URL строятся как <basePath>/<token>
func NewRegistry(basePath string) *Registry {
	return &Registry{
		basePath: strings.TrimRight(basePath, "/"),
		blobs:    make(map[string]Blob),
	}
}

// Resolve возвращает URL для показа. Готовый URL отдается как есть с пустым освобождением.
func (r *Registry) Resolve(src Source) (*Handle, error) {
	if src.URL != "" {
		return &Handle{URL: src.URL}, nil
	}
	if src.File.Data == nil {
		return nil, ErrEmptySource
	}

	contentType := src.File.ContentType
	if contentType == "" {
		contentType = codec.DetectContentType(src.File.Data)
	}

	token := uuid.NewString()
	r.mu.Lock()
	r.blobs[token] = Blob{Name: src.File.Name, ContentType: contentType, Data: src.File.Data}
	r.mu.Unlock()

	return &Handle{
		URL:     r.basePath + "/" + token,
		release: func() { r.free(token) },
	}, nil
}

// Lookup находит содержимое по токену
func (r *Registry) Lookup(token string) (Blob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[token]
	return blob, ok
}

// Len число живых выделений
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.blobs)
}

func (r *Registry) free(token string) {
	r.mu.Lock()
	delete(r.blobs, token)
	r.mu.Unlock()
}

// Slot текущий URL одного просмотрщика
type Slot struct {
	registry *Registry

	mu      sync.Mutex
	current *Handle
}

// NewSlot создает пустой слот
func NewSlot(registry *Registry) *Slot {
	return &Slot{registry: registry}
}

// Swap выделяет URL для нового источника и сразу освобождает предыдущий.
// При ошибке прежний URL остается в силе.
func (s *Slot) Swap(src Source) (string, error) {
	handle, err := s.registry.Resolve(src)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	previous := s.current
	s.current = handle
	s.mu.Unlock()

	previous.Release()
	return handle.URL, nil
}

// URL текущий адрес слота
func (s *Slot) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.URL
}

// Close освобождает текущий URL при закрытии просмотрщика
func (s *Slot) Close() {
	s.mu.Lock()
	previous := s.current
	s.current = nil
	s.mu.Unlock()

	previous.Release()
}
