package hcloud

import (
	"context"
	"fmt"
	"reflect"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/retry"
)

// CreateResult wraps the result of a resource creation operation.
// It handles both single and multiple actions that may need to be awaited.
type CreateResult[T any] struct {
	Resource T
	Action   *hcloud.Action
	Actions  []*hcloud.Action
}

// DeleteOperation encapsulates deletion logic for any hcloud resource.
// It provides consistent retry, timeout, and error handling across all resource types.
//
// Usage example:
//
//	func (c *RealClient) DeleteSecurityGroup(ctx context.Context, group *cloud.SecurityGroup) error {
//	    return (&DeleteOperation[*hcloud.Firewall]{
//	        Name:   group.ID,
//	        Kind:   cloud.KindSecurityGroup,
//	        Get:    c.client.Firewall.Get,
//	        Delete: c.client.Firewall.Delete,
//	    }).Execute(ctx, c)
//	}
type DeleteOperation[T any] struct {
	// Name is the name or ID passed to Get.
	Name string
	Kind cloud.Kind

	// Get retrieves the resource by name or ID
	Get func(ctx context.Context, idOrName string) (T, *hcloud.Response, error)

	// Delete removes the resource
	Delete func(ctx context.Context, resource T) (*hcloud.Response, error)
}

// Execute looks the resource up and deletes it. A resource that does not
// exist yields cloud.ErrNotFound, which callers treat as already deleted.
// While the resource is locked by another action the delete is retried with
// exponential backoff.
func (op *DeleteOperation[T]) Execute(ctx context.Context, client *RealClient) error {
	ctx, cancel := context.WithTimeout(ctx, client.timeouts.Delete)
	defer cancel()

	backoff := retry.NewBackoff(client.timeouts.RetryMaxAttempts, client.timeouts.RetryInitialDelay)
	return backoff.Do(ctx, isLocked, func(ctx context.Context) error {
		resource, _, err := op.Get(ctx, op.Name)
		if err != nil {
			return fmt.Errorf("failed to get %s: %w", op.Kind, classify(err, op.Kind, op.Name))
		}
		if isNil(resource) {
			return cloud.NotFoundError(op.Kind, op.Name)
		}

		if _, err := op.Delete(ctx, resource); err != nil {
			return fmt.Errorf("failed to delete %s %s: %w", op.Kind, op.Name, classify(err, op.Kind, op.Name))
		}
		return nil
	})
}

// CreateOperation encapsulates create logic for any named hcloud resource.
// Creating a resource whose name is already taken fails with
// cloud.ErrConflict, so callers decide whether to adopt the existing one.
//
// Usage example:
//
//	return (&CreateOperation[*hcloud.Network, hcloud.NetworkCreateOpts]{
//	    Name:   spec.Name,
//	    Kind:   cloud.KindNetwork,
//	    Get:    c.client.Network.Get,
//	    Create: simpleCreate(c.client.Network.Create),
//	    CreateOptsMapper: func() hcloud.NetworkCreateOpts {
//	        return hcloud.NetworkCreateOpts{Name: spec.Name, IPRange: ipNet, Labels: spec.Labels}
//	    },
//	}).Execute(ctx, c)
type CreateOperation[T any, CreateOpts any] struct {
	Name string
	Kind cloud.Kind

	// Get retrieves the resource by name
	Get func(ctx context.Context, name string) (T, *hcloud.Response, error)

	// Create creates the resource with the given options
	Create func(ctx context.Context, opts CreateOpts) (*CreateResult[T], *hcloud.Response, error)

	// CreateOptsMapper maps input parameters to create options
	CreateOptsMapper func() CreateOpts
}

// Execute checks that the name is free, creates the resource and waits for
// the creation actions.
func (op *CreateOperation[T, CreateOpts]) Execute(ctx context.Context, client *RealClient) (T, error) {
	var zero T

	existing, _, err := op.Get(ctx, op.Name)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s: %w", op.Kind, classify(err, op.Kind, op.Name))
	}
	if !isNil(existing) {
		return zero, cloud.ConflictError(op.Kind, op.Name)
	}

	result, _, err := op.Create(ctx, op.CreateOptsMapper())
	if err != nil {
		return zero, fmt.Errorf("failed to create %s: %w", op.Kind, classify(err, op.Kind, op.Name))
	}

	if err := waitForActionResult(ctx, client.client, result); err != nil {
		return zero, fmt.Errorf("failed to wait for %s creation: %w", op.Kind, err)
	}

	return result.Resource, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// waitForActions waits for one or more actions to complete.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}

// waitForActionResult waits for actions from a CreateResult.
// Handles both singular Action and plural Actions fields.
func waitForActionResult[T any](ctx context.Context, client *hcloud.Client, result *CreateResult[T]) error {
	return waitForActions(ctx, client, append([]*hcloud.Action{result.Action}, result.Actions...)...)
}

// simpleCreate wraps create functions returning the resource directly.
// Use for: Network, SSH key (return Resource, Response, error)
func simpleCreate[T any, Opts any](
	createFn func(context.Context, Opts) (T, *hcloud.Response, error),
) func(context.Context, Opts) (*CreateResult[T], *hcloud.Response, error) {
	return func(ctx context.Context, opts Opts) (*CreateResult[T], *hcloud.Response, error) {
		resource, resp, err := createFn(ctx, opts)
		if err != nil {
			return nil, resp, err
		}
		return &CreateResult[T]{Resource: resource}, resp, nil
	}
}
