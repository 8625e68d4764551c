package kv

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions параметры подключения к объектному хранилищу
type MinioOptions struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Prefix    string `yaml:"prefix"`
}

// MinioArea хранит каждое значение отдельным объектом бакета
type MinioArea struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioArea подключается к MinIO и создает бакет при необходимости
func NewMinioArea(ctx context.Context, opts MinioOptions) (*MinioArea, error) {
	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", opts.Bucket, err)
		}
	}

	return &MinioArea{client: cli, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

func (m *MinioArea) objectName(key string) string {
	if m.prefix == "" {
		return key + ".json"
	}
	return path.Join(m.prefix, key+".json")
}

func (m *MinioArea) Get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.objectName(key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	defer obj.Close()

	// ошибка отсутствия объекта приходит только при первом чтении
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return data, true, nil
}

func (m *MinioArea) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, m.objectName(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

func (m *MinioArea) Remove(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, m.objectName(key), minio.RemoveObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}

func (m *MinioArea) Ping(ctx context.Context) error {
	if _, err := m.client.BucketExists(ctx, m.bucket); err != nil {
		return fmt.Errorf("minio is unreachable: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
