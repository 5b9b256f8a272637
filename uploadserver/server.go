package uploadserver

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	BackendDisk  = "disk"
	BackendMinio = "minio"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

type Config struct {
	Listen   string
	InputDir string
	Backend  string
	Minio    MinioConfig
}

// NewStore builds the destination store selected by cfg.Backend.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", BackendDisk:
		if cfg.InputDir == "" {
			return nil, fmt.Errorf("input directory is required for the %s backend", BackendDisk)
		}
		return &DiskStore{Dir: cfg.InputDir}, nil
	case BackendMinio:
		endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Minio.Endpoint, "https://"), "http://")
		if i := strings.Index(endpoint, "/"); i != -1 {
			endpoint = endpoint[:i]
		}
		if cfg.Minio.Bucket == "" {
			return nil, fmt.Errorf("bucket is required for the %s backend", BackendMinio)
		}
		client, err := minio.New(endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
			Secure: cfg.Minio.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return NewMinioStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewHandler wires routes and middleware around store. Metrics are
// registered on reg, which is also what /metrics exposes.
func NewHandler(store Store, reg *prometheus.Registry) http.Handler {
	m := newMetrics(reg)

	mux := http.NewServeMux()
	mux.HandleFunc("/", indexHandler)
	mux.HandleFunc("/api/upload", uploadHandler(store, m))
	mux.HandleFunc("/debug/list", debugList(store))
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/health/", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return Chain(requestIDMiddleware, corsMiddleware, logMiddleware)(mux)
}

func Run(cfg Config) error {
	store, err := NewStore(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           NewHandler(store, prometheus.NewRegistry()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("sheetdrop listening on %s (backend: %s)", cfg.Listen, store.Describe())
	return srv.ListenAndServe()
}
