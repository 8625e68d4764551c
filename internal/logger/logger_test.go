package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "debug", "")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("id", "rec-1").Info("Запись сохранена")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "rec-1", entry["id"])
	assert.Equal(t, "info", entry["level"])
}

func TestNewTextAndFallbackLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(&buf, "verbose", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())

	log.Debug("скрыто")
	log.Warn("видно")
	assert.False(t, strings.Contains(buf.String(), "скрыто"))
	assert.True(t, strings.Contains(buf.String(), "level=warning"))
}
