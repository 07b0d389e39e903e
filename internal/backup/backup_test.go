package backup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// fakeS3 implements s3Client in memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	delErr  error
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	f.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*input.Key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(strings.NewReader(string(data))),
	}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.delErr != nil {
		return nil, f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if input.Prefix != nil && !strings.HasPrefix(key, *input.Prefix) {
			continue
		}
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
	}
	return out, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManagerDisabledWithoutConfig(t *testing.T) {
	m := NewManager(Config{}, nil, nil, testLogger())

	if m.Enabled() {
		t.Error("expected manager without S3 config to be disabled")
	}
	if got := m.Status().State; got != StateDisabled {
		t.Errorf("status = %s, want %s", got, StateDisabled)
	}
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("expected RunNow on disabled manager to fail")
	}
}

func TestManagerDisabledWithoutPassphrase(t *testing.T) {
	cfg := Config{
		S3: S3Config{Bucket: "b", AccessKey: "k", SecretKey: "s"},
	}
	m := NewManager(cfg, nil, nil, testLogger())
	if m.Enabled() {
		t.Error("expected manager without passphrase to be disabled")
	}
}

func TestSnapshotTime(t *testing.T) {
	ts, ok := snapshotTime("backups/room8-2026-03-01T040000Z.db.enc")
	if !ok {
		t.Fatal("expected key to parse")
	}
	want := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("snapshotTime = %v, want %v", ts, want)
	}

	if _, ok := snapshotTime("backups/junk"); ok {
		t.Error("expected malformed key to be rejected")
	}
}

func TestCleanupDeletesOnlyExpiredSnapshots(t *testing.T) {
	client := newFakeS3()
	oldKey := "backups/room8-2020-01-01T040000Z.db.enc"
	newKey := "backups/room8-" + time.Now().UTC().Format("2006-01-02T150405Z") + ".db.enc"
	client.objects[oldKey] = []byte("old")
	client.objects[newKey] = []byte("new")
	client.objects["unrelated/file"] = []byte("x")

	m := &Manager{
		cfg:    Config{S3: S3Config{Bucket: "b"}, RetentionDays: 30},
		client: client,
		logger: testLogger(),
	}

	if err := m.Cleanup(context.Background()); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}

	if _, ok := client.objects[oldKey]; ok {
		t.Error("expected expired snapshot to be deleted")
	}
	if _, ok := client.objects[newKey]; !ok {
		t.Error("recent snapshot should survive cleanup")
	}
	if _, ok := client.objects["unrelated/file"]; !ok {
		t.Error("objects outside the backup prefix must not be touched")
	}
}

func TestCleanupCollectsDeleteFailures(t *testing.T) {
	client := newFakeS3()
	client.objects["backups/room8-2020-01-01T040000Z.db.enc"] = []byte("old")
	client.delErr = errors.New("forbidden")

	m := &Manager{
		cfg:    Config{S3: S3Config{Bucket: "b"}, RetentionDays: 30},
		client: client,
		logger: testLogger(),
	}

	if err := m.Cleanup(context.Background()); err == nil {
		t.Error("expected cleanup to report delete failure")
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	client := newFakeS3()
	client.objects["backups/room8-2026-01-01T040000Z.db.enc"] = []byte("a")
	client.objects["unrelated/file"] = []byte("x")

	m := &Manager{
		cfg:    Config{S3: S3Config{Bucket: "b"}},
		client: client,
		logger: testLogger(),
	}

	keys, err := m.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(keys) != 1 || keys[0] != "backups/room8-2026-01-01T040000Z.db.enc" {
		t.Errorf("List = %v, want only the backup key", keys)
	}
}
