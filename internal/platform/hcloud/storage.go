package hcloud

import (
	"context"

	"github.com/imamik/wsctl/internal/cloud"
)

// Storage goes to Hetzner Object Storage when configured.

func (c *RealClient) FindBucket(ctx context.Context, name string) (*cloud.Bucket, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.FindBucket(ctx, name)
}

func (c *RealClient) CreateBucket(ctx context.Context, spec cloud.BucketSpec) (*cloud.Bucket, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.CreateBucket(ctx, spec)
}

func (c *RealClient) DeleteBucket(ctx context.Context, bucket *cloud.Bucket) error {
	if c.storage == nil {
		return cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.DeleteBucket(ctx, bucket)
}

func (c *RealClient) ListObjects(ctx context.Context, bucket *cloud.Bucket, limit int) ([]string, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.ListObjects(ctx, bucket, limit)
}

func (c *RealClient) DeleteObjects(ctx context.Context, bucket *cloud.Bucket, keys []string) error {
	if c.storage == nil {
		return cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.DeleteObjects(ctx, bucket, keys)
}
