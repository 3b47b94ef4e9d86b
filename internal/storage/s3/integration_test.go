//go:build integration

package s3

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/duckmesh/duckframe/internal/config"
	"github.com/duckmesh/duckframe/internal/storage"
)

func TestObjectTreeAgainstMinIO(t *testing.T) {
	endpoint := envOr("DUCKFRAME_TEST_S3_ENDPOINT", "")
	if endpoint == "" {
		t.Skip("DUCKFRAME_TEST_S3_ENDPOINT is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	store, err := New(ctx, config.ObjectStoreConfig{
		Enabled:          true,
		Endpoint:         endpoint,
		Region:           envOr("DUCKFRAME_TEST_S3_REGION", "us-east-1"),
		Bucket:           envOr("DUCKFRAME_TEST_S3_BUCKET", "duckframe-it"),
		AccessKeyID:      envOr("DUCKFRAME_TEST_S3_ACCESS_KEY", "minio"),
		SecretAccessKey:  envOr("DUCKFRAME_TEST_S3_SECRET_KEY", "miniostorage"),
		Prefix:           "integration-tests",
		AutoCreateBucket: true,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	keys := []string{"warehouse/people.csv", "warehouse/sales/q1.csv"}
	for _, key := range keys {
		payload := []byte("id\n1\n")
		if _, err := store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), storage.PutOptions{ContentType: "text/csv"}); err != nil {
			t.Fatalf("Put(%q) error = %v", key, err)
		}
	}
	t.Cleanup(func() {
		for _, key := range keys {
			_ = store.Delete(context.Background(), key)
		}
	})

	tree := storage.NewObjectTree(store)
	entries, err := tree.ReadDir(ctx, "warehouse")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "people.csv" || !entries[1].Dir {
		t.Fatalf("ReadDir() = %#v", entries)
	}

	dir, err := tree.Stat(ctx, "warehouse/sales")
	if err != nil {
		t.Fatalf("Stat(dir) error = %v", err)
	}
	if !dir.Dir {
		t.Fatalf("Stat(dir) = %#v, want directory", dir)
	}

	if err := store.Delete(ctx, "warehouse/people.csv"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := tree.Stat(ctx, "warehouse/people.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() after delete error = %v, want ErrObjectNotFound", err)
	}
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
