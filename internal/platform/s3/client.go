package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/imamik/wsctl/internal/cloud"
)

// MaxDeleteBatch is the largest key batch a single DeleteObjects call accepts.
const MaxDeleteBatch = 1000

// defaultRegion is the region that must not be sent as a location constraint.
const defaultRegion = "us-east-1"

var _ cloud.StorageManager = (*Client)(nil)

// Client wraps the S3 API for the workspace bucket.
type Client struct {
	s3     *s3.Client
	region string
	// tagging enables bucket tags from labels. Hetzner Object Storage does
	// not support bucket tagging.
	tagging bool
}

// NewClient creates a client for an S3-compatible endpoint with static
// credentials, as used for Hetzner Object Storage.
func NewClient(endpoint, region, accessKey, secretKey string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = false // Hetzner uses virtual-hosted style
	})

	return &Client{s3: client, region: region}, nil
}

// NewFromConfig creates a client for AWS S3 from a loaded SDK config.
func NewFromConfig(cfg aws.Config, optFns ...func(*s3.Options)) *Client {
	return &Client{
		s3:      s3.NewFromConfig(cfg, optFns...),
		region:  cfg.Region,
		tagging: true,
	}
}

// Region returns the region buckets are created in.
func (c *Client) Region() string {
	return c.region
}

// URI returns the s3:// URI of a bucket.
func URI(bucket string) string {
	return "s3://" + bucket
}

// FindBucket returns the bucket, or nil if it does not exist.
func (c *Client) FindBucket(ctx context.Context, name string) (*cloud.Bucket, error) {
	exists, err := c.BucketExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	region, err := c.bucketRegion(ctx, name)
	if err != nil {
		return nil, err
	}
	return &cloud.Bucket{Name: name, Region: region, URI: URI(name)}, nil
}

// BucketExists checks if a bucket exists and is accessible.
func (c *Client) BucketExists(ctx context.Context, name string) (bool, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check bucket %s: %w", name, classify(err, name))
	}
	return true, nil
}

func (c *Client) bucketRegion(ctx context.Context, name string) (string, error) {
	out, err := c.s3.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get location of bucket %s: %w", name, classify(err, name))
	}
	if out.LocationConstraint == "" {
		// S3 reports buckets in the default region without a constraint.
		if c.region != "" {
			return c.region, nil
		}
		return defaultRegion, nil
	}
	return string(out.LocationConstraint), nil
}

// CreateBucket creates the bucket in the client region. A bucket that
// already exists, even one owned by the caller, is reported as a conflict.
func (c *Client) CreateBucket(ctx context.Context, spec cloud.BucketSpec) (*cloud.Bucket, error) {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(spec.Name),
	}
	if c.region != "" && c.region != defaultRegion {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to create bucket %s: %w", spec.Name, classify(err, spec.Name))
	}

	if c.tagging && len(spec.Labels) > 0 {
		if err := c.tagBucket(ctx, spec.Name, spec.Labels); err != nil {
			return nil, err
		}
	}

	return &cloud.Bucket{Name: spec.Name, Region: c.region, URI: URI(spec.Name)}, nil
}

func (c *Client) tagBucket(ctx context.Context, name string, labels map[string]string) error {
	tags := make([]types.Tag, 0, len(labels))
	for _, k := range sortedKeys(labels) {
		tags = append(tags, types.Tag{Key: aws.String(k), Value: aws.String(labels[k])})
	}
	_, err := c.s3.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
		Bucket:  aws.String(name),
		Tagging: &types.Tagging{TagSet: tags},
	})
	if err != nil {
		return fmt.Errorf("failed to tag bucket %s: %w", name, classify(err, name))
	}
	return nil
}

// DeleteBucket deletes an empty bucket.
func (c *Client) DeleteBucket(ctx context.Context, bucket *cloud.Bucket) error {
	_, err := c.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{
		Bucket: aws.String(bucket.Name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket.Name, classify(err, bucket.Name))
	}
	return nil
}

// ListObjects returns up to limit object keys, following continuation
// tokens. A limit of zero or less lists everything.
func (c *Client) ListObjects(ctx context.Context, bucket *cloud.Bucket, limit int) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket.Name),
	}
	if limit > 0 && limit < MaxDeleteBatch {
		input.MaxKeys = aws.Int32(int32(limit))
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket.Name, classify(err, bucket.Name))
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
			if limit > 0 && len(keys) == limit {
				return keys, nil
			}
		}
	}
	return keys, nil
}

// DeleteObjects removes keys in batches of MaxDeleteBatch. Per-key failures
// reported by the service are returned together.
func (c *Client) DeleteObjects(ctx context.Context, bucket *cloud.Bucket, keys []string) error {
	for start := 0; start < len(keys); start += MaxDeleteBatch {
		end := min(start+MaxDeleteBatch, len(keys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket.Name),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return fmt.Errorf("failed to delete objects from bucket %s: %w", bucket.Name, classify(err, bucket.Name))
		}

		var errs []error
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("object %s: %s: %s", aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("failed to delete objects from bucket %s: %w", bucket.Name, err)
		}
	}
	return nil
}
