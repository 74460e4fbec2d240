package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/imamik/wsctl/internal/cloud"
)

// conflictCodes are API error codes for names or attachments that already exist.
var conflictCodes = map[string]bool{
	"EntityAlreadyExists":               true,
	"InvalidGroup.Duplicate":            true,
	"InvalidPermission.Duplicate":       true,
	"RouteAlreadyExists":                true,
	"Resource.AlreadyAssociated":        true,
	"VpcPeeringConnectionAlreadyExists": true,
}

// transientCodes are API error codes worth retrying. DependencyViolation is
// returned while a deleted child (a NAT gateway interface, a route) is still
// being released.
var transientCodes = map[string]bool{
	"RequestLimitExceeded": true,
	"Throttling":           true,
	"ThrottlingException":  true,
	"InternalError":        true,
	"ServiceUnavailable":   true,
	"Unavailable":          true,
	"DependencyViolation":  true,
	"IncorrectState":       true,
}

func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func isNotFoundCode(code string) bool {
	return strings.HasSuffix(code, ".NotFound") || code == "NoSuchEntity" || code == "NatGatewayNotFound"
}

// classify maps EC2 and IAM API errors onto the cloud error kinds, keeping
// the original error in the chain.
func classify(err error, kind cloud.Kind, name string) error {
	if err == nil {
		return nil
	}
	code := errorCode(err)
	switch {
	case code == "":
		return err
	case isNotFoundCode(code):
		return fmt.Errorf("%w: %w", cloud.NotFoundError(kind, name), err)
	case conflictCodes[code]:
		return fmt.Errorf("%w: %w", cloud.ConflictError(kind, name), err)
	case transientCodes[code]:
		return cloud.TransientError(err)
	default:
		return err
	}
}

// ignoreCode returns nil when err carries one of the given API error codes.
func ignoreCode(err error, codes ...string) error {
	code := errorCode(err)
	for _, c := range codes {
		if code == c {
			return nil
		}
	}
	return err
}
