// Package kv provides the durable key-value area the record archive is persisted in.
// One value per key, read and written whole.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// ErrQuotaExceeded значение не помещается в отведенную квоту
var ErrQuotaExceeded = errors.New("kv quota exceeded")

// Area долговременное хранилище ключ-значение
type Area interface {
	// Get возвращает значение и признак его наличия
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	// Remove удаляет ключ, отсутствие ключа ошибкой не является
	Remove(ctx context.Context, key string) error
}

// Pinger реализуется бэкендами, умеющими проверять соединение
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping проверяет хранилище, если бэкенд это поддерживает
func Ping(ctx context.Context, area Area) error {
	pinger, ok := area.(Pinger)
	if !ok {
		return nil
	}
	return pinger.Ping(ctx)
}

// CloseIfSupported закрывает бэкенд, если у него есть Close
func CloseIfSupported(area Area) error {
	closer, ok := area.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// quotaArea ограничивает размер одного значения
type quotaArea struct {
	Area
	limit int
}

// WithQuota отклоняет значения больше limit байт. limit <= 0 отключает проверку.
func WithQuota(area Area, limit int) Area {
	if limit <= 0 {
		return area
	}
	return &quotaArea{Area: area, limit: limit}
}

func (q *quotaArea) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > q.limit {
		return fmt.Errorf("%w: %d bytes for key %q, limit %d", ErrQuotaExceeded, len(value), key, q.limit)
	}
	return q.Area.Set(ctx, key, value)
}

func (q *quotaArea) Ping(ctx context.Context) error {
	return Ping(ctx, q.Area)
}

func (q *quotaArea) Close() error {
	return CloseIfSupported(q.Area)
}
