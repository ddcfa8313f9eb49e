package app

import (
	"io"
	"log/slog"
	"testing"

	"split-compositor/internal/platform/config"
	"split-compositor/internal/storage"
)

func TestNewContentStore(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
		wantFS  bool
	}{
		{name: "fs", cfg: config.Config{StorageBackend: config.StorageFS, StorageRoot: t.TempDir()}, wantFS: true},
		{name: "default", cfg: config.Config{StorageRoot: t.TempDir()}, wantFS: true},
		{name: "s3", cfg: config.Config{StorageBackend: config.StorageS3, S3Endpoint: "localhost:9000", S3Bucket: "renders"}},
		{name: "s3_without_bucket", cfg: config.Config{StorageBackend: config.StorageS3, S3Endpoint: "localhost:9000"}, wantErr: true},
		{name: "unknown", cfg: config.Config{StorageBackend: "gcs"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewContentStore(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewContentStore: %v", err)
			}
			if _, ok := store.(*storage.FileStore); ok != tt.wantFS {
				t.Errorf("backend type %T", store)
			}
		})
	}
}

func TestNew(t *testing.T) {
	cfg := config.Config{StorageBackend: config.StorageFS, StorageRoot: t.TempDir(), ScratchDir: t.TempDir(), FFmpegPath: "ffmpeg-does-not-exist"}
	c, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Engine == nil || c.FFmpeg == nil || c.Prober == nil {
		t.Fatalf("incomplete components: %+v", c)
	}
	if err := c.FFmpeg.CheckAvailable(); err == nil {
		t.Error("expected missing ffmpeg binary to be reported")
	}
}
