package s3

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/imamik/wsctl/internal/cloud"
)

// classify maps S3 errors onto the cloud error kinds, keeping the original
// error in the chain.
func classify(err error, bucket string) error {
	switch {
	case err == nil:
		return nil
	case isNotFoundError(err):
		return fmt.Errorf("%w: %w", cloud.NotFoundError(cloud.KindStorageBucket, bucket), err)
	case isConflictError(err):
		return fmt.Errorf("%w: %w", cloud.ConflictError(cloud.KindStorageBucket, bucket), err)
	case isRetryable(err):
		return cloud.TransientError(err)
	default:
		return err
	}
}

// isNotFoundError checks if the error indicates the bucket is missing.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket", "NotFound":
			return true
		}
	}
	return false
}

// isConflictError checks if the bucket name is already taken, by the
// caller or anyone else.
func isConflictError(err error) bool {
	if err == nil {
		return false
	}

	var owned *types.BucketAlreadyOwnedByYou
	if errors.As(err, &owned) {
		return true
	}
	var exists *types.BucketAlreadyExists
	if errors.As(err, &exists) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
			return true
		}
	}
	return false
}

// isRetryable reports throttling and server-side failures.
func isRetryable(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "RequestTimeout", "ServiceUnavailable", "InternalError", "Throttling":
			return true
		}
	}

	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
