package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/duckmesh/duckframe/internal/config"
	"github.com/duckmesh/duckframe/internal/storage"
)

func TestKeysAreRootedUnderPrefix(t *testing.T) {
	fake := &fakeBucket{}
	store, err := newStore(fake, "/duckframe/prod/")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}

	info, err := store.Put(context.Background(), "/warehouse/sales/orders.parquet", bytes.NewBufferString("abc"), 3, storage.PutOptions{ContentType: "application/vnd.apache.parquet"})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.lastKey != "duckframe/prod/warehouse/sales/orders.parquet" {
		t.Fatalf("bucket key = %q", fake.lastKey)
	}
	if info.Key != "warehouse/sales/orders.parquet" {
		t.Fatalf("Put().Key = %q, want store relative key", info.Key)
	}

	stat, err := store.Stat(context.Background(), "warehouse/sales/orders.parquet")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if stat.Key != "warehouse/sales/orders.parquet" || stat.Size != 3 {
		t.Fatalf("Stat() = %+v", stat)
	}
}

func TestKeysRejectTraversalAndEmpty(t *testing.T) {
	store, err := newStore(&fakeBucket{}, "")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	if _, err := store.Put(context.Background(), "../secrets.txt", bytes.NewBufferString("x"), 1, storage.PutOptions{}); err == nil {
		t.Fatal("expected traversal error")
	}
	if _, err := store.Get(context.Background(), "  "); err == nil {
		t.Fatal("expected empty key error")
	}
	if _, err := newStore(&fakeBucket{}, "../up"); err == nil {
		t.Fatal("expected prefix traversal error")
	}
	if _, err := newStore(nil, ""); err == nil {
		t.Fatal("expected missing bucket error")
	}
}

func TestMissingObjectsMapToNotFound(t *testing.T) {
	store, err := newStore(&fakeBucket{}, "")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	if _, err := store.Stat(context.Background(), "warehouse/missing.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}
	if _, err := store.Get(context.Background(), "warehouse/missing.csv"); !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("Get() error = %v, want ErrObjectNotFound", err)
	}
	if err := store.Delete(context.Background(), "warehouse/missing.csv"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
}

func TestListStripsPrefixAndMarksDirectories(t *testing.T) {
	fake := &fakeBucket{listed: []storage.ObjectInfo{
		{Key: "duckframe/warehouse/"},
		{Key: "duckframe/warehouse/sales/"},
		{Key: "duckframe/warehouse/orders.csv", Size: 12},
	}}
	store, err := newStore(fake, "duckframe")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	infos, err := store.List(context.Background(), "warehouse")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fake.lastPrefix != "duckframe/warehouse/" {
		t.Fatalf("list prefix = %q", fake.lastPrefix)
	}
	if len(infos) != 2 {
		t.Fatalf("List() = %+v", infos)
	}
	if infos[0].Key != "warehouse/sales" || !infos[0].Dir {
		t.Fatalf("dir entry = %+v", infos[0])
	}
	if infos[1].Key != "warehouse/orders.csv" || infos[1].Dir || infos[1].Size != 12 {
		t.Fatalf("object entry = %+v", infos[1])
	}
}

func TestListRootWithoutPrefix(t *testing.T) {
	fake := &fakeBucket{listed: []storage.ObjectInfo{{Key: "orders.csv"}}}
	store, err := newStore(fake, "")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	infos, err := store.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fake.lastPrefix != "" || len(infos) != 1 || infos[0].Key != "orders.csv" {
		t.Fatalf("List() = %+v with prefix %q", infos, fake.lastPrefix)
	}
}

func TestObjectTreeOverStore(t *testing.T) {
	fake := &fakeBucket{listed: []storage.ObjectInfo{
		{Key: "lake/people.csv", Size: 8},
		{Key: "lake/sales/"},
	}}
	store, err := newStore(fake, "")
	if err != nil {
		t.Fatalf("newStore() error = %v", err)
	}
	entries, err := storage.NewObjectTree(store).ReadDir(context.Background(), "lake")
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Path != "lake/people.csv" || !entries[1].Dir {
		t.Fatalf("ReadDir() = %+v", entries)
	}
}

func TestParseEndpoint(t *testing.T) {
	cases := []struct {
		raw    string
		useSSL bool
		host   string
		secure bool
	}{
		{raw: "https://minio.example.com", host: "minio.example.com", secure: true},
		{raw: "http://localhost:9000", host: "localhost:9000"},
		{raw: "localhost:9000", useSSL: true, host: "localhost:9000", secure: true},
	}
	for _, tc := range cases {
		host, secure, err := parseEndpoint(tc.raw, tc.useSSL)
		if err != nil {
			t.Fatalf("parseEndpoint(%q) error = %v", tc.raw, err)
		}
		if host != tc.host || secure != tc.secure {
			t.Fatalf("parseEndpoint(%q) = %q/%v", tc.raw, host, secure)
		}
	}
	if _, _, err := parseEndpoint("http://", false); err == nil {
		t.Fatal("expected missing host error")
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(context.Background(), config.ObjectStoreConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Fatal("expected missing bucket error")
	}
	if _, err := New(context.Background(), config.ObjectStoreConfig{Bucket: "lake"}); err == nil {
		t.Fatal("expected missing endpoint error")
	}
}

type fakeBucket struct {
	objects    map[string][]byte
	listed     []storage.ObjectInfo
	lastKey    string
	lastPrefix string
}

func (f *fakeBucket) PutObject(_ context.Context, key string, body io.Reader, _ int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	f.lastKey = key
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeBucket) GetObject(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(strings.NewReader(string(data))), nil
}

func (f *fakeBucket) StatObject(_ context.Context, key string) (storage.ObjectInfo, error) {
	data, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeBucket) RemoveObject(_ context.Context, key string) error {
	if _, ok := f.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeBucket) ListPrefix(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	f.lastPrefix = prefix
	out := make([]storage.ObjectInfo, len(f.listed))
	copy(out, f.listed)
	return out, nil
}
