package aws

import (
	"context"

	"github.com/imamik/wsctl/internal/cloud"
)

// Storage goes to S3 in the client region.

func (c *Client) FindBucket(ctx context.Context, name string) (*cloud.Bucket, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.FindBucket(ctx, name)
}

func (c *Client) CreateBucket(ctx context.Context, spec cloud.BucketSpec) (*cloud.Bucket, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.CreateBucket(ctx, spec)
}

func (c *Client) DeleteBucket(ctx context.Context, bucket *cloud.Bucket) error {
	if c.storage == nil {
		return cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.DeleteBucket(ctx, bucket)
}

func (c *Client) ListObjects(ctx context.Context, bucket *cloud.Bucket, limit int) ([]string, error) {
	if c.storage == nil {
		return nil, cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.ListObjects(ctx, bucket, limit)
}

func (c *Client) DeleteObjects(ctx context.Context, bucket *cloud.Bucket, keys []string) error {
	if c.storage == nil {
		return cloud.UnsupportedError(BackendName, cloud.KindStorageBucket)
	}
	return c.storage.DeleteObjects(ctx, bucket, keys)
}
