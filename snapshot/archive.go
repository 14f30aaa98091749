package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"

	"github.com/pusher/chatkit-go/state"
)

const (
	rootPrefix = "snapshots"
	extension  = ".msgpack"
)

// Archive stores snapshots for one instance at
// snapshots/<instance>/<zero-padded version>.msgpack.
type Archive struct {
	store    lode.Store
	instance string
}

// NewArchive creates an archive over store.
func NewArchive(store lode.Store, instanceLocator string) (*Archive, error) {
	if store == nil {
		return nil, errors.New("snapshot archive requires a store")
	}
	if instanceLocator == "" {
		return nil, errors.New("snapshot archive requires an instance locator")
	}
	return &Archive{store: store, instance: segment(instanceLocator)}, nil
}

// NewArchiveWithFactory creates an archive from a lode store factory.
// Use lode.NewMemoryFactory() for testing.
func NewArchiveWithFactory(factory lode.StoreFactory, instanceLocator string) (*Archive, error) {
	store, err := factory()
	if err != nil {
		return nil, wrapStorageError("init", "", err)
	}
	return NewArchive(store, instanceLocator)
}

// NewFSArchive creates an archive rooted at a local directory.
func NewFSArchive(root, instanceLocator string) (*Archive, error) {
	return NewArchiveWithFactory(lode.NewFSFactory(root), instanceLocator)
}

// S3Config holds configuration for the S3 storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(p string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(p, "/")
	return bucket, prefix
}

// NewS3Archive creates an archive in an S3 bucket.
// Uses AWS SDK default credential chain (env vars, shared config, IAM role).
func NewS3Archive(ctx context.Context, cfg S3Config, instanceLocator string) (*Archive, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsConfig, s3Opts...)

	return NewArchiveWithFactory(func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: cfg.Bucket,
			Prefix: cfg.Prefix,
		})
	}, instanceLocator)
}

// Put archives s and returns the path it was written to.
func (a *Archive) Put(ctx context.Context, s state.VersionedState, meta Meta) (string, error) {
	data, err := Encode(s, meta)
	if err != nil {
		return "", err
	}
	p := a.pathFor(s.Version)
	if err := a.store.Put(ctx, p, bytes.NewReader(data)); err != nil {
		return "", wrapStorageError("put", p, err)
	}
	return p, nil
}

// Get reads the snapshot of one version.
func (a *Archive) Get(ctx context.Context, version uint64) (*Document, error) {
	p := a.pathFor(version)
	rc, err := a.store.Get(ctx, p)
	if err != nil {
		return nil, wrapStorageError("get", p, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, wrapStorageError("get", p, err)
	}
	return Decode(data)
}

// Versions lists archived versions in ascending order.
func (a *Archive) Versions(ctx context.Context) ([]uint64, error) {
	prefix := path.Join(rootPrefix, a.instance) + "/"
	paths, err := a.store.List(ctx, prefix)
	if err != nil {
		return nil, wrapStorageError("list", prefix, err)
	}

	var versions []uint64
	for _, p := range paths {
		name := path.Base(p)
		if !strings.HasSuffix(name, extension) {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSuffix(name, extension), 10, 64)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	slices.Sort(versions)
	return slices.Compact(versions), nil
}

// Latest reads the snapshot with the highest version.
// Returns ErrNoSnapshots if the archive is empty.
func (a *Archive) Latest(ctx context.Context) (*Document, error) {
	versions, err := a.Versions(ctx)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, ErrNoSnapshots
	}
	return a.Get(ctx, versions[len(versions)-1])
}

func (a *Archive) pathFor(version uint64) string {
	return path.Join(rootPrefix, a.instance, fmt.Sprintf("%020d%s", version, extension))
}

// segment makes an instance locator safe as a single path segment.
func segment(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, s)
}
