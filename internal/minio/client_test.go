package minio

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

// fakeAPI serves a V1 delimiter listing from a map, honoring StartAfter as
// the marker.
type fakeAPI struct {
	buckets map[string]map[string]string
	listErr error
	authErr error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{buckets: make(map[string]map[string]string)}
}

func (f *fakeAPI) put(bucket, key, body string) {
	if f.buckets[bucket] == nil {
		f.buckets[bucket] = make(map[string]string)
	}
	f.buckets[bucket][key] = body
}

func (f *fakeAPI) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	var out []minio.BucketInfo
	for name := range f.buckets {
		out = append(out, minio.BucketInfo{Name: name})
	}
	return out, nil
}

func (f *fakeAPI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, ok := f.buckets[bucket]
	return ok, nil
}

func (f *fakeAPI) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		send := func(info minio.ObjectInfo) bool {
			select {
			case ch <- info:
				return true
			case <-ctx.Done():
				return false
			}
		}
		if f.listErr != nil {
			send(minio.ObjectInfo{Err: f.listErr})
			return
		}
		objects, ok := f.buckets[bucket]
		if !ok {
			send(minio.ObjectInfo{Err: minio.ErrorResponse{Code: "NoSuchBucket", StatusCode: 404}})
			return
		}
		keys := make([]string, 0, len(objects))
		for k := range objects {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		seen := make(map[string]bool)
		for _, k := range keys {
			if !strings.HasPrefix(k, opts.Prefix) || k <= opts.StartAfter {
				continue
			}
			rest := k[len(opts.Prefix):]
			if i := strings.Index(rest, "/"); !opts.Recursive && i >= 0 {
				cp := opts.Prefix + rest[:i+1]
				if cp <= opts.StartAfter || seen[cp] {
					continue
				}
				seen[cp] = true
				if !send(minio.ObjectInfo{Key: cp}) {
					return
				}
				continue
			}
			info := minio.ObjectInfo{
				Key:          k,
				Size:         int64(len(objects[k])),
				ETag:         `"etag"`,
				LastModified: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
			}
			if !send(info) {
				return
			}
		}
	}()
	return ch
}

func (f *fakeAPI) StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	body, ok := f.buckets[bucket][key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(body)), ContentType: "text/plain", StorageClass: "STANDARD"}, nil
}

func (f *fakeAPI) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	body, ok := f.buckets[bucket][key]
	if !ok {
		return nil, 0, minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404}
	}
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

type fakeAdmin struct {
	usage madmin.DataUsageInfo
	err   error
}

func (f *fakeAdmin) DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error) {
	return f.usage, f.err
}

func testConfig() Config {
	return Config{
		Regions: []Region{
			{Name: "home", Endpoint: "http://localhost:9000", PrivateEndpoint: "http://10.0.0.5:9000"},
			{Name: "lab"},
		},
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Delimiter: vpath.Default,
	}
}

func testConn(t *testing.T, api *fakeAPI, admin AdminAPI) store.Conn {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	s.dial = func(ctx context.Context, region, endpoint string) (API, AdminAPI, error) {
		return api, admin, nil
	}
	conn, err := s.Connect(context.Background(), "home", false)
	require.NoError(t, err)
	return conn
}

func names(attrs []store.ObjectAttrs) []string {
	out := make([]string, len(attrs))
	for i, a := range attrs {
		out[i] = a.Name
	}
	return out
}

func TestConfig_Validate(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.Validate())

	noKeys := testConfig()
	noKeys.SecretKey = ""
	assert.Error(t, noKeys.Validate())

	noRegions := testConfig()
	noRegions.Regions = nil
	assert.Error(t, noRegions.Validate())

	colon := testConfig()
	colon.Delimiter = ":"
	assert.ErrorIs(t, colon.Validate(), store.ErrUnsupported)
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		host     string
		secure   bool
	}{
		{"play.min.io", "play.min.io", true},
		{"localhost:9000", "localhost:9000", true},
		{"http://localhost:9000", "localhost:9000", false},
		{"https://minio.example.com", "minio.example.com", true},
	}
	for _, tt := range tests {
		host, secure, err := parseEndpoint(tt.endpoint)
		require.NoError(t, err, tt.endpoint)
		assert.Equal(t, tt.host, host, tt.endpoint)
		assert.Equal(t, tt.secure, secure, tt.endpoint)
	}
}

func TestStore_Connect(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI()
	s, err := New(testConfig())
	require.NoError(t, err)

	var dialed []string
	s.dial = func(ctx context.Context, region, endpoint string) (API, AdminAPI, error) {
		dialed = append(dialed, endpoint)
		return api, nil, nil
	}

	_, err = s.Connect(ctx, "nowhere", false)
	assert.ErrorIs(t, err, store.ErrNoSuchRegion)

	_, err = s.Connect(ctx, "lab", false)
	assert.ErrorIs(t, err, store.ErrRegionUnreachable)

	_, err = s.Connect(ctx, "lab", true)
	assert.ErrorIs(t, err, store.ErrRegionUnreachable)

	conn, err := s.Connect(ctx, "home", true)
	require.NoError(t, err)
	assert.True(t, conn.Secure())
	assert.Equal(t, []string{"http://10.0.0.5:9000"}, dialed)

	api.authErr = minio.ErrorResponse{Code: "InvalidAccessKeyId", StatusCode: 403}
	_, err = s.Connect(ctx, "home", false)
	assert.ErrorIs(t, err, store.ErrAuthenticationFailed)
}

func TestConn_ListContainers(t *testing.T) {
	api := newFakeAPI()
	api.put("photos", "a", "1")
	api.put("logs", "b", "22")
	api.put("archive", "c", "333")
	admin := &fakeAdmin{usage: madmin.DataUsageInfo{
		BucketsUsage: map[string]madmin.BucketUsageInfo{
			"photos": {Size: 1, ObjectsCount: 1},
		},
	}}
	conn := testConn(t, api, admin)
	ctx := context.Background()

	page, err := conn.ListContainers(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "archive", page[0].Name)
	assert.Equal(t, "logs", page[1].Name)
	assert.Nil(t, page[0].Count)

	page, err = conn.ListContainers(ctx, "logs", 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "photos", page[0].Name)
	require.NotNil(t, page[0].Count)
	assert.Equal(t, uint64(1), *page[0].Count)
	assert.Equal(t, uint64(1), *page[0].Bytes)

	admin.err = errors.New("access denied")
	page, err = conn.ListContainers(ctx, "logs", 2)
	require.NoError(t, err)
	assert.Nil(t, page[0].Count)
}

func TestConn_HeadContainer(t *testing.T) {
	api := newFakeAPI()
	api.put("photos", "a", "1")
	conn := testConn(t, api, nil)

	assert.NoError(t, conn.HeadContainer(context.Background(), "photos"))
	assert.ErrorIs(t, conn.HeadContainer(context.Background(), "nope"), store.ErrNoSuchContainer)
}

func TestConn_Listing(t *testing.T) {
	api := newFakeAPI()
	for _, k := range []string{"a.txt", "b.txt", "c/x", "d.txt", "e/y", "e/z/w"} {
		api.put("b", k, k)
	}
	api.put("b", "e/", "")
	conn := testConn(t, api, nil)
	ctx := context.Background()

	dirs, err := conn.ListPseudoDirectories(ctx, "b", "", "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c/"}, names(dirs))
	assert.True(t, dirs[0].IsPseudoDir())

	dirs, err = conn.ListPseudoDirectories(ctx, "b", "", "c/", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"e/"}, names(dirs))

	objs, err := conn.ListObjects(ctx, "b", "", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names(objs))
	assert.Equal(t, "etag", objs[0].ETag)

	objs, err = conn.ListObjects(ctx, "b", "", "b.txt", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"d.txt"}, names(objs))

	nested, err := conn.ListObjects(ctx, "b", "e/", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"e/y"}, names(nested))

	_, err = conn.ListObjects(ctx, "nope", "", "", 0)
	assert.ErrorIs(t, err, store.ErrNoSuchContainer)

	api.listErr = minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403}
	_, err = conn.ListObjects(ctx, "b", "", "", 0)
	assert.ErrorIs(t, err, store.ErrAccessDenied)
}

func TestConn_ObjectAttrs(t *testing.T) {
	api := newFakeAPI()
	api.put("b", "readme.txt", "hello")
	api.put("b", "2024/cat.jpg", "meow")
	conn := testConn(t, api, nil)
	ctx := context.Background()

	attrs, err := conn.ObjectAttrs(ctx, "b", "readme.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), attrs.Size)
	assert.Equal(t, "text/plain", attrs.ContentType)

	dir, err := conn.ObjectAttrs(ctx, "b", "2024")
	require.NoError(t, err)
	assert.True(t, dir.IsPseudoDir())

	_, err = conn.ObjectAttrs(ctx, "b", "missing")
	assert.ErrorIs(t, err, store.ErrNoSuchObject)
}

func TestConn_OpenObject(t *testing.T) {
	api := newFakeAPI()
	api.put("b", "readme.txt", "hello")
	conn := testConn(t, api, nil)

	rc, size, err := conn.OpenObject(context.Background(), "b", "readme.txt", 0)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, int64(5), size)

	_, _, err = conn.OpenObject(context.Background(), "b", "nope", 0)
	assert.ErrorIs(t, err, store.ErrNoSuchObject)
}

func TestFromInfo(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	attrs := fromInfo(minio.ObjectInfo{Key: "a.jpg", Size: 7, ETag: `"abc"`, LastModified: modified})
	assert.Equal(t, store.ObjectAttrs{Name: "a.jpg", Size: 7, ETag: "abc", LastModified: modified}, attrs)

	cold := fromInfo(minio.ObjectInfo{Key: "cold.bin", StorageClass: "GLACIER", Restore: &minio.RestoreInfo{OngoingRestore: true}})
	assert.Equal(t, store.RestoreInProgress, cold.RestoreStatus)
	assert.True(t, cold.IsArchived())

	thawed := fromInfo(minio.ObjectInfo{Key: "cold.bin", StorageClass: "GLACIER", Restore: &minio.RestoreInfo{}})
	assert.Equal(t, store.RestoreAvailable, thawed.RestoreStatus)
	assert.False(t, thawed.IsArchived())
}
