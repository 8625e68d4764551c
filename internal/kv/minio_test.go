package kv

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(errors.New("timeout")))
}

func TestMinioObjectName(t *testing.T) {
	area := &MinioArea{bucket: "spine"}
	assert.Equal(t, "analysisRecords.json", area.objectName("analysisRecords"))

	area.prefix = "client-1"
	assert.Equal(t, "client-1/analysisRecords.json", area.objectName("analysisRecords"))
}
