package model

import (
	"time"
)

// KVEntry представляет одно значение key-value хранилища в базе данных
type KVEntry struct {
	Key     string `gorm:"column:entry_key;primaryKey;type:varchar(255)" json:"key"`
	Payload []byte `gorm:"column:payload;not null" json:"payload"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName указывает имя таблицы для KVEntry
func (KVEntry) TableName() string {
	return "kv_entries"
}
