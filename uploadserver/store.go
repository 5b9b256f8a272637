package uploadserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Store persists one spreadsheet per project id. Saving an id that already
// exists replaces the previous content.
type Store interface {
	Save(ctx context.Context, projectID string, data []byte) (string, error)
	List(ctx context.Context) ([]string, error)
	Describe() string
}

// DiskStore writes <Dir>/<projectID>.xlsx.
type DiskStore struct {
	Dir string
}

func (s *DiskStore) Describe() string { return "disk:" + s.Dir }

func (s *DiskStore) Save(_ context.Context, projectID string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create input dir: %w", err)
	}

	outPath := filepath.Join(s.Dir, projectID+".xlsx")

	// Write beside the destination and rename over it so readers never see a
	// half-written workbook.
	tmp, err := os.CreateTemp(s.Dir, ".upload-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %q: %w", outPath, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %q: %w", outPath, err)
	}
	// CreateTemp makes 0600 files. Stored workbooks are always 0644, umask is
	// not applied.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod %q: %w", outPath, err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return "", fmt.Errorf("rename into %q: %w", outPath, err)
	}
	return outPath, nil
}

func (s *DiskStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	files := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// objectPutter abstracts MinIO PutObject for testability.
type objectPutter interface {
	PutObject(ctx context.Context, bucket, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// objectLister abstracts MinIO ListObjects for testability.
type objectLister interface {
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type minioClient interface {
	objectPutter
	objectLister
}

// MinioStore keeps uploads as <Prefix>/<projectID>.xlsx objects in Bucket.
type MinioStore struct {
	client minioClient
	Bucket string
	Prefix string
}

func NewMinioStore(client minioClient, bucket, prefix string) *MinioStore {
	return &MinioStore{
		client: client,
		Bucket: bucket,
		Prefix: strings.Trim(prefix, "/"),
	}
}

func (s *MinioStore) Describe() string { return "minio:" + path.Join(s.Bucket, s.Prefix) }

func (s *MinioStore) objectKey(projectID string) string {
	return path.Join(s.Prefix, projectID+".xlsx")
}

func (s *MinioStore) Save(ctx context.Context, projectID string, data []byte) (string, error) {
	key := s.objectKey(projectID)
	_, err := s.client.PutObject(ctx, s.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: xlsxContentType})
	if err != nil {
		return "", fmt.Errorf("put %q: %w", key, err)
	}
	return path.Join(s.Bucket, key), nil
}

func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	opts := minio.ListObjectsOptions{Recursive: true}
	if s.Prefix != "" {
		opts.Prefix = s.Prefix + "/"
	}

	files := []string{}
	for obj := range s.client.ListObjects(ctx, s.Bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects: %w", obj.Err)
		}
		if !strings.HasSuffix(obj.Key, ".xlsx") {
			continue
		}
		files = append(files, strings.TrimPrefix(obj.Key, opts.Prefix))
	}
	sort.Strings(files)
	return files, nil
}
