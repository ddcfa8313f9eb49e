// Package app wires the compositor's collaborators from process configuration.
package app

import (
	"fmt"
	"log/slog"

	"split-compositor/internal/composition"
	"split-compositor/internal/media/probe"
	"split-compositor/internal/platform/config"
	"split-compositor/internal/storage"
	"split-compositor/internal/transcode"
)

// Components are the long-lived collaborators shared by the server and the CLI.
type Components struct {
	Store   storage.ContentStore
	Prober  *probe.Prober
	FFmpeg  *transcode.Manager
	Engine  *composition.Engine
	Backend string
}

// NewContentStore returns the storage backend selected by cfg.StorageBackend.
func NewContentStore(cfg config.Config) (storage.ContentStore, error) {
	switch cfg.StorageBackend {
	case config.StorageFS, "":
		return storage.NewFileStore(cfg.StorageRoot), nil
	case config.StorageS3:
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return s3, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// New builds the composition engine and its collaborators.
func New(cfg config.Config, log *slog.Logger) (*Components, error) {
	store, err := NewContentStore(cfg)
	if err != nil {
		return nil, err
	}
	prober := probe.New(log, cfg.ProbeTimeout, nil)
	ffmpeg := transcode.NewManager(log, transcode.Options{
		Binary:           cfg.FFmpegPath,
		Timeout:          cfg.TranscodeTimeout,
		ProgressInterval: cfg.ProgressInterval,
	})
	engine := composition.NewEngine(store, prober, ffmpeg, log, composition.Options{
		ScratchDir:   cfg.ScratchDir,
		CanvasWidth:  cfg.CanvasWidth,
		CanvasHeight: cfg.CanvasHeight,
	})
	return &Components{
		Store:   store,
		Prober:  prober,
		FFmpeg:  ffmpeg,
		Engine:  engine,
		Backend: cfg.StorageBackend,
	}, nil
}
