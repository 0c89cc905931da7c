// Package blob stores item images. Drivers: in-process memory, a local
// directory, or an S3-compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver identifies a blob storage backend.
type Driver string

// Supported drivers.
const (
	DriverMemory     Driver = "memory"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

var (
	// ErrNotFound is returned when a key has no object.
	ErrNotFound = errors.New("blob not found")
	// ErrExists is returned by Put when the key is taken.
	ErrExists = errors.New("blob already exists")
)

// PutOptions carries optional object attributes.
type PutOptions struct {
	ContentType string
}

// Info describes a stored object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the object storage used for item images. Put is create-only.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Delete(ctx context.Context, key string) (bool, error)
	Driver() Driver
}

// Config selects and configures a driver.
type Config struct {
	Driver    string
	Root      string
	Bucket    string
	Region    string
	Endpoint  string
	PathStyle bool

	// Static credentials; the default AWS chain is used when empty.
	AccessKeyID     string
	SecretAccessKey string
}

// Open returns the store selected by cfg.Driver (default fs).
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			PathStyle:       cfg.PathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}
