package fakes

import (
	"context"
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindBucket(_ context.Context, name string) (*cloud.Bucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindStorageBucket, name); err != nil {
		return nil, err
	}
	if bs, ok := b.buckets[name]; ok {
		return copyOf(bs.bucket), nil
	}
	return nil, nil
}

func (b *Backend) CreateBucket(_ context.Context, spec cloud.BucketSpec) (*cloud.Bucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindStorageBucket, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.buckets[spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindStorageBucket, spec.Name)
	}
	bucket := &cloud.Bucket{Name: spec.Name, Region: "fake-1", URI: "s3://" + spec.Name}
	b.buckets[spec.Name] = &bucketState{bucket: bucket, objects: make(map[string]struct{})}
	return copyOf(bucket), nil
}

func (b *Backend) DeleteBucket(_ context.Context, bucket *cloud.Bucket) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindStorageBucket, bucket.Name); err != nil {
		return err
	}
	bs, ok := b.buckets[bucket.Name]
	if !ok {
		return cloud.NotFoundError(cloud.KindStorageBucket, bucket.Name)
	}
	if len(bs.objects) > 0 {
		return fmt.Errorf("bucket %q is not empty", bucket.Name)
	}
	delete(b.buckets, bucket.Name)
	return nil
}

func (b *Backend) ListObjects(_ context.Context, bucket *cloud.Bucket, limit int) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpList, cloud.KindStorageBucket, bucket.Name); err != nil {
		return nil, err
	}
	bs, ok := b.buckets[bucket.Name]
	if !ok {
		return nil, cloud.NotFoundError(cloud.KindStorageBucket, bucket.Name)
	}
	keys := sortedKeys(bs.objects)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (b *Backend) DeleteObjects(_ context.Context, bucket *cloud.Bucket, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpRemove, cloud.KindStorageBucket, bucket.Name); err != nil {
		return err
	}
	bs, ok := b.buckets[bucket.Name]
	if !ok {
		return cloud.NotFoundError(cloud.KindStorageBucket, bucket.Name)
	}
	for _, k := range b.batch(keys) {
		delete(bs.objects, k)
	}
	return nil
}
