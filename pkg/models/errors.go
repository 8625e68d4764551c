package models

import (
	"errors"
	"fmt"
)

// ValidationError некорректный документ импорта или запись без обязательных полей
type ValidationError struct {
	Record    int // индекс записи в документе, имеет смысл при HasRecord
	HasRecord bool
	Field     string
	Reason    string
}

func (e *ValidationError) Error() string {
	msg := "validation failed"
	switch {
	case e.HasRecord && e.Field != "":
		msg = fmt.Sprintf("%s: records[%d].%s", msg, e.Record, e.Field)
	case e.HasRecord:
		msg = fmt.Sprintf("%s: records[%d]", msg, e.Record)
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	}
	if e.Reason != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Reason)
	}
	return msg
}

// StorageError хранилище недоступно или переполнено
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// EncodingError ошибка преобразования бинарных данных в data URL и обратно
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// IsValidation сообщает, является ли err ошибкой валидации
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func withRecordIndex(err error, index int) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		copied := *verr
		copied.Record = index
		copied.HasRecord = true
		return &copied
	}
	return err
}
