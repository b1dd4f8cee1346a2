// Package aws implements store.Store for Amazon S3 and S3-compatible
// services. Buckets are containers; common prefixes under the configured
// delimiter are pseudo-directories.
package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/dorkyrobot/cftp/internal/observability"
	"github.com/dorkyrobot/cftp/internal/store"
	"github.com/dorkyrobot/cftp/internal/vpath"
)

const backendName = "s3"

// API is the subset of *s3.Client the backend calls.
type API interface {
	ListBuckets(ctx context.Context, in *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjects(ctx context.Context, in *s3.ListObjectsInput, optFns ...func(*s3.Options)) (*s3.ListObjectsOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

var _ API = (*s3.Client)(nil)

// Region is an advertised region and the endpoints that reach it.
// PrivateEndpoint is used for secure connections; a region without one
// cannot be reached securely.
type Region struct {
	Name            string
	Endpoint        string
	PrivateEndpoint string
}

// Config configures the S3 backend.
type Config struct {
	Regions []Region

	// AccessKeyID and SecretAccessKey override the SDK credential chain
	// when both are set.
	AccessKeyID     string
	SecretAccessKey string
	Profile         string

	// Endpoint is the default endpoint for regions that do not set one.
	Endpoint       string
	ForcePathStyle bool

	Delimiter vpath.Delimiter
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("s3: access key and secret key must be provided together")
	}
	if len(c.Regions) == 0 {
		return errors.New("s3: no regions configured")
	}
	return c.Delimiter.Validate()
}

type dialFunc func(ctx context.Context, region, endpoint string) (API, error)

// Store connects to S3 regions.
type Store struct {
	cfg  Config
	dial dialFunc
}

var (
	_ store.Store = (*Store)(nil)
	_ store.Conn  = (*Conn)(nil)
)

// New returns an S3 store. No network calls are made until Connect.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Store{cfg: cfg}
	s.dial = s.newClient
	return s, nil
}

func (s *Store) newClient(ctx context.Context, region, endpoint string) (API, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if s.cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(s.cfg.Profile))
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = awssdk.String(endpoint)
		}
		o.UsePathStyle = s.cfg.ForcePathStyle
	}), nil
}

// ListRegions returns the configured region names in order.
func (s *Store) ListRegions(ctx context.Context) ([]string, error) {
	names := make([]string, len(s.cfg.Regions))
	for i, r := range s.cfg.Regions {
		names[i] = r.Name
	}
	return names, nil
}

// Connect builds a client for region and verifies the credentials with a
// one-bucket listing.
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

	api, err := s.dial(ctx, region, endpoint)
	if err != nil {
		return nil, &store.Error{Op: "Connect", Backend: backendName, Err: fmt.Errorf("%w: %w", store.ErrRegionUnreachable, err)}
	}

	_, err = api.ListBuckets(ctx, &s3.ListBucketsInput{
		BucketRegion: awssdk.String(region),
		MaxBuckets:   awssdk.Int32(1),
	})
	if err != nil {
		return nil, wrapError("Connect", "", "", err)
	}

	observability.CLILogger.Debug("S3 client ready",
		zap.String("region", region),
		zap.String("endpoint", endpoint),
		zap.Bool("secure", secure))
	return &Conn{api: api, region: region, secure: secure, delim: s.cfg.Delimiter}, nil
}

// Conn is a client bound to one region.
type Conn struct {
	api    API
	region string
	secure bool
	delim  vpath.Delimiter
}

func (c *Conn) Region() string { return c.region }
func (c *Conn) Secure() bool   { return c.secure }

// ListContainers lists the region's buckets. S3 pages buckets by
// continuation token, so marker and limit are applied client-side.
func (c *Conn) ListContainers(ctx context.Context, marker string, limit int) ([]store.ContainerAttrs, error) {
	var names []string
	in := &s3.ListBucketsInput{BucketRegion: awssdk.String(c.region)}
	for {
		out, err := c.api.ListBuckets(ctx, in)
		if err != nil {
			return nil, wrapError("ListContainers", "", "", err)
		}
		for _, b := range out.Buckets {
			if name := awssdk.ToString(b.Name); name > marker {
				names = append(names, name)
			}
		}
		if awssdk.ToString(out.ContinuationToken) == "" {
			break
		}
		in.ContinuationToken = out.ContinuationToken
	}
	sort.Strings(names)

	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	if len(names) > limit {
		names = names[:limit]
	}

	out := make([]store.ContainerAttrs, len(names))
	for i, name := range names {
		out[i] = store.ContainerAttrs{Name: name}
	}
	return out, nil
}

func (c *Conn) HeadContainer(ctx context.Context, name string) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: awssdk.String(name)})
	if err != nil {
		return wrapError("HeadContainer", name, "", err)
	}
	return nil
}

func (c *Conn) ListObjects(ctx context.Context, container, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	return c.listPage(ctx, "ListObjects", container, prefix, marker, limit, func(out *s3.ListObjectsOutput) []store.ObjectAttrs {
		page := make([]store.ObjectAttrs, 0, len(out.Contents))
		for _, obj := range out.Contents {
			key := awssdk.ToString(obj.Key)
			if key == prefix {
				continue
			}
			page = append(page, store.ObjectAttrs{
				Name:         key,
				Size:         uint64(awssdk.ToInt64(obj.Size)),
				ETag:         cleanETag(awssdk.ToString(obj.ETag)),
				LastModified: awssdk.ToTime(obj.LastModified),
				StorageClass: string(obj.StorageClass),
			})
		}
		return page
	})
}

func (c *Conn) ListPseudoDirectories(ctx context.Context, container, prefix, marker string, limit int) ([]store.ObjectAttrs, error) {
	return c.listPage(ctx, "ListPseudoDirectories", container, prefix, marker, limit, func(out *s3.ListObjectsOutput) []store.ObjectAttrs {
		page := make([]store.ObjectAttrs, 0, len(out.CommonPrefixes))
		for _, p := range out.CommonPrefixes {
			page = append(page, store.ObjectAttrs{
				Name:        awssdk.ToString(p.Prefix),
				ContentType: store.PseudoDirType,
			})
		}
		return page
	})
}

// listPage issues delimiter listings until pick yields at least one entry
// or the listing ends. A single S3 page may hold only objects or only
// common prefixes.
func (c *Conn) listPage(ctx context.Context, op, container, prefix, marker string, limit int, pick func(*s3.ListObjectsOutput) []store.ObjectAttrs) ([]store.ObjectAttrs, error) {
	if limit <= 0 {
		limit = store.DefaultPageSize
	}
	for {
		in := &s3.ListObjectsInput{
			Bucket:    awssdk.String(container),
			Delimiter: awssdk.String(string(c.delim)),
			MaxKeys:   awssdk.Int32(int32(limit)),
		}
		if prefix != "" {
			in.Prefix = awssdk.String(prefix)
		}
		if marker != "" {
			in.Marker = awssdk.String(marker)
		}

		out, err := c.api.ListObjects(ctx, in)
		if err != nil {
			return nil, wrapError(op, container, "", err)
		}

		page := pick(out)
		if len(page) > 0 || !awssdk.ToBool(out.IsTruncated) {
			return page, nil
		}

		next := nextMarker(out)
		if next == "" || next == marker {
			return nil, nil
		}
		observability.CLILogger.Debug("S3 page held no entries of requested kind",
			zap.String("op", op),
			zap.String("container", container),
			zap.String("marker", next))
		marker = next
	}
}

func nextMarker(out *s3.ListObjectsOutput) string {
	if m := awssdk.ToString(out.NextMarker); m != "" {
		return m
	}
	var last string
	if n := len(out.Contents); n > 0 {
		last = awssdk.ToString(out.Contents[n-1].Key)
	}
	if n := len(out.CommonPrefixes); n > 0 {
		if p := awssdk.ToString(out.CommonPrefixes[n-1].Prefix); p > last {
			last = p
		}
	}
	return last
}

// ObjectAttrs heads key. A missing key that has objects beneath it is
// reported as a pseudo-directory.
func (c *Conn) ObjectAttrs(ctx context.Context, container, key string) (*store.ObjectAttrs, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: awssdk.String(container),
		Key:    awssdk.String(key),
	})
	if err == nil {
		return &store.ObjectAttrs{
			Name:          key,
			Size:          uint64(awssdk.ToInt64(out.ContentLength)),
			ETag:          cleanETag(awssdk.ToString(out.ETag)),
			ContentType:   awssdk.ToString(out.ContentType),
			LastModified:  awssdk.ToTime(out.LastModified),
			StorageClass:  string(out.StorageClass),
			RestoreStatus: restoreStatus(awssdk.ToString(out.Restore)),
		}, nil
	}

	wrapped := wrapError("ObjectAttrs", container, key, err)
	if !errors.Is(wrapped, store.ErrNoSuchObject) {
		return nil, wrapped
	}

	dir := key + string(c.delim)
	probe, perr := c.api.ListObjects(ctx, &s3.ListObjectsInput{
		Bucket:    awssdk.String(container),
		Prefix:    awssdk.String(dir),
		Delimiter: awssdk.String(string(c.delim)),
		MaxKeys:   awssdk.Int32(1),
	})
	if perr != nil {
		return nil, wrapError("ObjectAttrs", container, key, perr)
	}
	if len(probe.Contents) > 0 || len(probe.CommonPrefixes) > 0 {
		return &store.ObjectAttrs{Name: dir, ContentType: store.PseudoDirType}, nil
	}
	return nil, wrapped
}
