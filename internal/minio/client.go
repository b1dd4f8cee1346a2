// Package minio implements store.Store for MinIO deployments using
// minio-go. Container usage comes from the admin API when the credentials
// allow it.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

const backendName = "minio"

// API is the subset of the MinIO client the backend calls.
type API interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error)
}

// AdminAPI is the subset of the madmin client the backend calls.
type AdminAPI interface {
	DataUsageInfo(ctx context.Context) (madmin.DataUsageInfo, error)
}

// wrappedClient adapts *minio.Client to API.
type wrappedClient struct {
	*minio.Client
}

func (c wrappedClient) GetObjectReader(ctx context.Context, bucket, key string) (io.ReadCloser, int64, error) {
	obj, err := c.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, err
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, err
	}
	return obj, info.Size, nil
}

// Region is an advertised region and the endpoints that reach it.
type Region struct {
	Name            string
	Endpoint        string
	PrivateEndpoint string
}

// Config configures the MinIO backend.
type Config struct {
	Regions []Region

	// Endpoint is used by regions that do not set one. Endpoints are
	// "host:port" or a URL whose scheme selects TLS.
	Endpoint string

	AccessKey string
	SecretKey string

	Delimiter vpath.Delimiter
}

// Validate checks the configuration. MinIO groups listings by "/" only.
func (c Config) Validate() error {
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("minio: access key and secret key are required")
	}
	if len(c.Regions) == 0 {
		return errors.New("minio: no regions configured")
	}
	if c.Delimiter != vpath.Default {
		return fmt.Errorf("minio: delimiter %q: %w", string(c.Delimiter), store.ErrUnsupported)
	}
	return nil
}

type dialFunc func(ctx context.Context, region, endpoint string) (API, AdminAPI, error)

// Store connects to MinIO regions.
type Store struct {
	cfg  Config
	dial dialFunc
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Conn  = (*Conn)(nil)
)

// New returns a MinIO store. No network calls are made until Connect.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg}
	s.dial = s.newClients
	return s, nil
}

// parseEndpoint splits an endpoint into the host minio-go expects and
// whether TLS is used. Bare host:port endpoints use TLS.
func parseEndpoint(endpoint string) (host string, secure bool, err error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *Store) newClients(ctx context.Context, region, endpoint string) (API, AdminAPI, error) {
	host, secure, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		Secure: secure,
		Region: region,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating minio client: %w", err)
	}

	admin, err := madmin.NewWithOptions(host, &madmin.Options{
		Creds:  credentials.NewStaticV4(s.cfg.AccessKey, s.cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		observability.CLILogger.Debug("Admin client unavailable; container usage disabled", zap.Error(err))
		return wrappedClient{client}, nil, nil
	}
	return wrappedClient{client}, admin, nil
}

// ListRegions returns the configured region names in order.
func (s *Store) ListRegions(ctx context.Context) ([]string, error) {
	names := make([]string, len(s.cfg.Regions))
	for i, r := range s.cfg.Regions {
		names[i] = r.Name
	}
	return names, nil
}

// Connect builds clients for region and verifies the credentials by
// listing buckets.
func (s *Store) Connect(ctx context.Context, region string, secure bool) (store.Conn, error) {
	var r *Region
	for i := range s.cfg.Regions {
		if s.cfg.Regions[i].Name == region {
			r = &s.cfg.Regions[i]
			break
		}
	}
	if r == nil {
		return nil, &store.Error{Op: "Connect", Backend: backendName, Err: store.ErrNoSuchRegion}
	}

	endpoint := r.Endpoint
	if endpoint == "" {
		endpoint = s.cfg.Endpoint
	}
	if secure {
		if r.PrivateEndpoint == "" {
			return nil, &store.Error{Op: "Connect", Backend: backendName,
				Err: fmt.Errorf("%w: no private endpoint for %s", store.ErrRegionUnreachable, region)}
		}
		endpoint = r.PrivateEndpoint
	}
	if endpoint == "" {
		return nil, &store.Error{Op: "Connect", Backend: backendName,
			Err: fmt.Errorf("%w: no endpoint for %s", store.ErrRegionUnreachable, region)}
	}

	api, admin, err := s.dial(ctx, region, endpoint)
	if err != nil {
		return nil, &store.Error{Op: "Connect", Backend: backendName, Err: fmt.Errorf("%w: %w", store.ErrRegionUnreachable, err)}
	}
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, wrapError("Connect", "", "", err)
	}

	observability.CLILogger.Debug("MinIO client ready",
		zap.String("region", region),
		zap.String("endpoint", endpoint),
		zap.Bool("secure", secure),
		zap.Bool("admin", admin != nil))
	return &Conn{api: api, admin: admin, region: region, secure: secure}, nil
}

// Conn is a client bound to one region.
type Conn struct {
	api    API
	admin  AdminAPI
	region string
	secure bool
}

func (c *Conn) Region() string { return c.region }
func (c *Conn) Secure() bool   { return c.secure }

// ListContainers lists buckets after marker. Byte and object counts are
// filled in from the admin usage report when it is available.
func (c *Conn) ListContainers(ctx context.Context, marker string, limit int) ([]store.ContainerAttrs, error) {
	buckets, err := c.api.ListBuckets(ctx)
	if err != nil {
		return nil, wrapError("ListContainers", "", "", err)
	}

	var names []string
	for _, b := range buckets {
		if b.Name > marker {
			names = append(names, b.Name)
		}
	}
	sort.Strings(names)
	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	if len(names) > limit {
		names = names[:limit]
	}

	usage := c.usage(ctx)
	out := make([]store.ContainerAttrs, len(names))
	for i, name := range names {
		out[i] = store.ContainerAttrs{Name: name}
		if u, ok := usage[name]; ok {
			size, count := u.Size, u.ObjectsCount
			out[i].Bytes = &size
			out[i].Count = &count
		}
	}
	return out, nil
}

func (c *Conn) usage(ctx context.Context) map[string]madmin.BucketUsageInfo {
	if c.admin == nil {
		return nil
	}
	info, err := c.admin.DataUsageInfo(ctx)
	if err != nil {
		observability.CLILogger.Debug("Data usage unavailable", zap.Error(err))
		return nil
	}
	return info.BucketsUsage
}

func (c *Conn) HeadContainer(ctx context.Context, name string) error {
	ok, err := c.api.BucketExists(ctx, name)
	if err != nil {
		return wrapError("HeadContainer", name, "", err)
	}
	if !ok {
		return &store.Error{Op: "HeadContainer", Backend: backendName, Container: name, Err: store.ErrNoSuchContainer}
	}
	return nil
}

func (c *Conn) ListObjects(ctx context.Context, container, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	return c.listPage(ctx, "ListObjects", container, prefix, marker, limit, false)
}

func (c *Conn) ListPseudoDirectories(ctx context.Context, container, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	return c.listPage(ctx, "ListPseudoDirectories", container, prefix, marker, limit, true)
}

// listPage reads the V1 listing stream after marker and keeps entries of
// one kind until limit is reached. minio-go pages internally, so the stream
// is cancelled once the page is full.
func (c *Conn) listPage(ctx context.Context, op, container, prefix, marker string, limit int, dirs bool) ([]store.ObjectAttrs, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:     prefix,
		StartAfter: marker,
		UseV1:      true,
	}

	var page []store.ObjectAttrs
	for obj := range c.api.ListObjects(ctx, container, opts) {
		if obj.Err != nil {
			return nil, wrapError(op, container, "", obj.Err)
		}
		if obj.Key == prefix || obj.Key <= marker {
			continue
		}
		isDir := strings.HasSuffix(obj.Key, string(vpath.Default))
		if isDir != dirs {
			continue
		}
		if isDir {
			page = append(page, store.ObjectAttrs{Name: obj.Key, ContentType: store.PseudoDirType})
		} else {
			page = append(page, fromInfo(obj))
		}
		if len(page) >= limit {
			break
		}
	}
	sort.Slice(page, func(i, j int) bool { return page[i].Name < page[j].Name })
	return page, nil
}

// ObjectAttrs stats key. A missing key with objects beneath it is reported
// as a pseudo-directory.
func (c *Conn) ObjectAttrs(ctx context.Context, container, key string) (*store.ObjectAttrs, error) {
	info, err := c.api.StatObject(ctx, container, key, minio.StatObjectOptions{})
	if err == nil {
		attrs := fromInfo(info)
		return &attrs, nil
	}

	wrapped := wrapError("ObjectAttrs", container, key, err)
	if !errors.Is(wrapped, store.ErrNoSuchObject) {
		return nil, wrapped
	}

	dir := key + string(vpath.Default)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range c.api.ListObjects(ctx, container, minio.ListObjectsOptions{Prefix: dir, UseV1: true, MaxKeys: 1}) {
		if obj.Err != nil {
			return nil, wrapError("ObjectAttrs", container, key, obj.Err)
		}
		return &store.ObjectAttrs{Name: dir, ContentType: store.PseudoDirType}, nil
	}
	return nil, wrapped
}

// OpenObject streams the object body in chunkSize reads.
func (c *Conn) OpenObject(ctx context.Context, container, key string, chunkSize int) (io.ReadCloser, int64, error) {
	rc, size, err := c.api.GetObjectReader(ctx, container, key)
	if err != nil {
		return nil, 0, wrapError("OpenObject", container, key, err)
	}
	return store.NewChunkReader(rc, chunkSize), size, nil
}

func fromInfo(info minio.ObjectInfo) store.ObjectAttrs {
	attrs := store.ObjectAttrs{
		Name:         info.Key,
		Size:         uint64(info.Size),
		ETag:         strings.Trim(info.ETag, `"`),
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		StorageClass: info.StorageClass,
	}
	if r := info.Restore; r != nil {
		attrs.RestoreStatus = store.RestoreAvailable
		if r.OngoingRestore {
			attrs.RestoreStatus = store.RestoreInProgress
		}
	}
	return attrs
}

// wrapError converts a MinIO error response into a store.Error carrying
// the matching sentinel.
func wrapError(op, container, key string, err error) error {
	wrapped := &store.Error{Op: op, Backend: backendName, Container: container, Key: key, Err: err}

	var sentinel error
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchBucket":
		sentinel = store.ErrNoSuchContainer
	case "NoSuchKey", "NoSuchObject":
		sentinel = store.ErrNoSuchObject
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
		sentinel = store.ErrAuthenticationFailed
	case "AccessDenied":
		sentinel = store.ErrAccessDenied
	case "InvalidObjectState":
		sentinel = store.ErrObjectArchived
	}
	if sentinel != nil {
		wrapped.Err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return wrapped
}
