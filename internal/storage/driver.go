package storage

import (
	"fmt"
	"strings"

	"dochub/internal/config"
)

// Open selects the uploads store named by up.StorageDriver.
func Open(up config.UploadConfig, mc config.MinIOConfig) (Storage, error) {
	switch strings.ToLower(up.StorageDriver) {
	case "", "local":
		l, err := NewLocal(up.Dir)
		if err != nil {
			return nil, err
		}
		return l, nil
	case "minio", "s3":
		return NewMinIO(mc)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", up.StorageDriver)
	}
}
