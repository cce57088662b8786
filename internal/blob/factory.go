package blob

import (
	"context"
	"fmt"
	"strings"
)

// Config selects and parameterizes a backend.
type Config struct {
	Driver     Driver
	ScratchDir string
	GCSBucket  string
	S3         S3Config
}

// Open constructs the store named by cfg.Driver. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(strings.ToLower(string(cfg.Driver))) {
	case "", DriverFilesystem:
		return NewFSStore(cfg.ScratchDir)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverGCS:
		return NewGCSStore(ctx, cfg.GCSBucket)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Driver)
	}
}
