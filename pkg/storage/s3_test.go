package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeObjects is an in-memory stand-in for a bucket.
type fakeObjects struct {
	objects   map[string][]byte
	sizes     map[string]int64
	partSizes map[string]uint64
	listErr   error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		objects:   make(map[string][]byte),
		sizes:     make(map[string]int64),
		partSizes: make(map[string]uint64),
	}
}

func (f *fakeObjects) PutObject(_ context.Context, _, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[objectName] = data
	f.sizes[objectName] = objectSize
	f.partSizes[objectName] = opts.PartSize
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func (f *fakeObjects) FGetObject(_ context.Context, _, objectName, filePath string, _ minio.GetObjectOptions) error {
	data, ok := f.objects[objectName]
	if !ok {
		return minio.ErrorResponse{Code: "NoSuchKey", Key: objectName}
	}
	return os.WriteFile(filePath, data, 0o600)
}

func (f *fakeObjects) ListObjects(ctx context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		if f.listErr != nil {
			ch <- minio.ObjectInfo{Err: f.listErr}
			return
		}
		for key := range f.objects {
			if !strings.HasPrefix(key, opts.Prefix) {
				continue
			}
			select {
			case ch <- minio.ObjectInfo{Key: key}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func TestS3_FullKey(t *testing.T) {
	tests := []struct {
		prefix string
		key    string
		want   string
	}{
		{"builds", "v1/app.zip", "builds/v1/app.zip"},
		{"", "v1/app.zip", "v1/app.zip"},
		{"builds/", "v1/app.zip", "builds/v1/app.zip"},
		{"builds", "/v1/app.zip", "builds/v1/app.zip"},
		{"/builds/", "app.zip", "builds/app.zip"},
		{"builds", "", "builds"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+"+"+tt.key, func(t *testing.T) {
			s := newS3WithClient(newFakeObjects(), "bucket", tt.prefix)
			got := s.fullKey(tt.key)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "//")
		})
	}
}

func TestS3_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	s := newS3WithClient(fake, "bucket", "builds")

	require.NoError(t, s.Store(ctx, strings.NewReader("zip bytes"), "v1/app.zip"))
	assert.Contains(t, fake.objects, "builds/v1/app.zip")

	dest := filepath.Join(t.TempDir(), "deep", "app.zip")
	require.NoError(t, s.Retrieve(ctx, "v1/app.zip", dest))
	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "zip bytes", string(content))
}

func TestS3_StorePassesObjectSize(t *testing.T) {
	fake := newFakeObjects()
	s := newS3WithClient(fake, "builds", "linux")

	f := filepath.Join(t.TempDir(), "game")
	require.NoError(t, os.WriteFile(f, []byte("12345"), 0o600))
	file, err := os.Open(f)
	require.NoError(t, err)
	defer file.Close()

	require.NoError(t, s.Store(context.Background(), file, "game"))
	assert.Equal(t, int64(5), fake.sizes["linux/game"], "files are uploaded with their size")
	assert.Zero(t, fake.partSizes["linux/game"])

	require.NoError(t, s.Store(context.Background(), strings.NewReader("abc"), "notes.txt"))
	assert.Equal(t, int64(3), fake.sizes["linux/notes.txt"])

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write([]byte("streamed"))
		_ = pw.Close()
	}()
	require.NoError(t, s.Store(context.Background(), pr, "stream.bin"))
	assert.Equal(t, int64(-1), fake.sizes["linux/stream.bin"])
	assert.Equal(t, uint64(streamPartSize), fake.partSizes["linux/stream.bin"], "unknown sizes use a bounded part size")
	assert.Equal(t, "streamed", string(fake.objects["linux/stream.bin"]))
}

func TestReaderSize_KeepsPosition(t *testing.T) {
	f := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(f, []byte("0123456789"), 0o600))
	file, err := os.Open(f)
	require.NoError(t, err)
	defer file.Close()

	_, err = file.Seek(4, io.SeekStart)
	require.NoError(t, err)

	size, err := readerSize(file)
	require.NoError(t, err)
	assert.Equal(t, int64(6), size)

	rest, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "456789", string(rest))
}

func TestS3_RetrieveNotFound(t *testing.T) {
	s := newS3WithClient(newFakeObjects(), "bucket", "")
	err := s.Retrieve(context.Background(), "missing", filepath.Join(t.TempDir(), "x"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestS3_ListUnderPrefix(t *testing.T) {
	fake := newFakeObjects()
	fake.objects["builds/a.txt"] = nil
	fake.objects["builds/sub/b.txt"] = nil
	fake.objects["builds/sub/"] = nil
	fake.objects["buildsother/c.txt"] = nil
	fake.objects["other/d.txt"] = nil

	s := newS3WithClient(fake, "bucket", "builds")
	keys, err := Keys(context.Background(), s)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.txt"}, keys)
}

func TestS3_ListError(t *testing.T) {
	fake := newFakeObjects()
	fake.listErr = errors.New("access denied")

	s := newS3WithClient(fake, "bucket", "")
	_, err := Keys(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestNewS3(t *testing.T) {
	_, err := NewS3(S3Config{})
	require.Error(t, err)

	_, err = NewS3(S3Config{Bucket: "b", AccessKey: "only-half"})
	require.Error(t, err)

	s, err := NewS3(S3Config{Bucket: "b", Prefix: "p/", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "p", s.prefix)
}

func TestSplitEndpoint(t *testing.T) {
	tests := []struct {
		endpoint   string
		insecure   bool
		wantHost   string
		wantSecure bool
	}{
		{"", false, defaultS3Endpoint, true},
		{"https://minio.local/", false, "minio.local", true},
		{"http://localhost:9000", false, "localhost:9000", false},
		{"localhost:9000", true, "localhost:9000", false},
	}

	for _, tt := range tests {
		host, secure := splitEndpoint(tt.endpoint, tt.insecure)
		assert.Equal(t, tt.wantHost, host, tt.endpoint)
		assert.Equal(t, tt.wantSecure, secure, tt.endpoint)
	}
}
