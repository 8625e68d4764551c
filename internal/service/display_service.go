package service

import (
	"errors"
	"sync"

	"spine-analyzer-go/internal/display"

	"github.com/sirupsen/logrus"
)

// DisplayService временные URL изображений для каждого просмотрщика
type DisplayService struct {
	registry *display.Registry
	logger   *logrus.Logger

	mu    sync.Mutex
	slots map[string]*display.Slot
}

// NewDisplayService создает сервис показа изображений
func NewDisplayService(registry *display.Registry, logger *logrus.Logger) *DisplayService {
	return &DisplayService{
		registry: registry,
		logger:   logger,
		slots:    make(map[string]*display.Slot),
	}
}

// Show показывает источник в просмотрщике, освобождая предыдущий URL
func (s *DisplayService) Show(viewer string, src display.Source) (string, error) {
	if viewer == "" {
		return "", errors.New("viewer id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[viewer]
	if !ok {
		slot = display.NewSlot(s.registry)
		s.slots[viewer] = slot
	}

	url, err := slot.Swap(src)
	if err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"viewer": viewer,
		"binary": src.IsBinary(),
	}).Debug("Источник изображения обновлен")
	return url, nil
}

// Close закрывает просмотрщик и освобождает его URL
func (s *DisplayService) Close(viewer string) bool {
	s.mu.Lock()
	slot, ok := s.slots[viewer]
	delete(s.slots, viewer)
	s.mu.Unlock()

	if !ok {
		return false
	}
	slot.Close()
	return true
}

// CloseAll освобождает все URL при остановке
func (s *DisplayService) CloseAll() {
	s.mu.Lock()
	slots := s.slots
	s.slots = make(map[string]*display.Slot)
	s.mu.Unlock()

	for _, slot := range slots {
		slot.Close()
	}
}

// Lookup содержимое временного URL по токену
func (s *DisplayService) Lookup(token string) (display.Blob, bool) {
	return s.registry.Lookup(token)
}
