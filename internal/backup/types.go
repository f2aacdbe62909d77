// Package backup takes periodic snapshots of the samples database,
// keeps a bounded set of local copies, and optionally uploads each
// snapshot to S3.
package backup

import (
	"context"
	"time"
)

// Config controls periodic database backups.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	LocalDir  string
	KeepLast  int
	BucketURL string

	S3Endpoint     string
	S3Region       string
	S3AccessKey    string
	S3SecretKey    string
	S3SessionToken string
	S3UseSSL       bool
}

// Snapshotter is the minimal snapshot contract required of the store.
type Snapshotter interface {
	Path() string
	SnapshotTo(dstPath string) error
}

// Uploader uploads one backup artifact.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
