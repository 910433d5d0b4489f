package attachment

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIO fetches attachments stored in an S3 compatible bucket
type MinIO struct {
	mc *minio.Client
}

// NewMinIO creates a client; no request is made until the first fetch
func NewMinIO(endpoint, access, secret string, useTLS bool) (*MinIO, error) {
	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &MinIO{mc: mc}, nil
}

// Fetch reads a whole object; a missing bucket or key is reported as not found
func (m *MinIO) Fetch(ctx context.Context, bucket, key string) ([]byte, bool, error) {
	obj, err := m.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, err
	}
	defer obj.Close()

	if _, err := obj.Stat(); err != nil {
		if isMissing(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func isMissing(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return true
	}
	return false
}
