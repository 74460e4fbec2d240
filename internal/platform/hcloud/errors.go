package hcloud

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
)

// lockedCodes mean another action is running on the resource. Deletes wait
// these out.
var lockedCodes = []hcloud.ErrorCode{
	hcloud.ErrorCodeLocked,
	hcloud.ErrorCodeConflict,
	hcloud.ErrorCodeResourceLocked,
	hcloud.ErrorCodeResourceUnavailable,
}

// transientCodes are reported as cloud.ErrTransient.
var transientCodes = append(slices.Clone(lockedCodes),
	hcloud.ErrorCodeRateLimitExceeded,
	hcloud.ErrorCodeServiceError,
	hcloud.ErrorCodeTimeout,
	hcloud.ErrorCodeMaintenance,
)

// errorCode extracts the API error code anywhere in the chain.
func errorCode(err error) (hcloud.ErrorCode, bool) {
	var apiErr hcloud.Error
	if !errors.As(err, &apiErr) {
		return "", false
	}
	return apiErr.Code, true
}

func hasCode(err error, codes []hcloud.ErrorCode) bool {
	code, ok := errorCode(err)
	return ok && slices.Contains(codes, code)
}

func isLocked(err error) bool {
	return hasCode(err, lockedCodes)
}

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	code, ok := errorCode(err)
	return ok && code == hcloud.ErrorCodeNotFound
}

// IsConflict checks if an error indicates a name collision.
func IsConflict(err error) bool {
	code, ok := errorCode(err)
	return ok && code == hcloud.ErrorCodeUniquenessError
}

// classify maps an hcloud error onto the cloud error kinds. The original
// error stays in the chain.
func classify(err error, kind cloud.Kind, name string) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%w: %w", cloud.NotFoundError(kind, name), err)
	case IsConflict(err):
		return fmt.Errorf("%w: %w", cloud.ConflictError(kind, name), err)
	case hasCode(err, transientCodes):
		return cloud.TransientError(err)
	default:
		return err
	}
}
