package workspace

import (
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/provisioning"
	"github.com/imamik/wsctl/internal/util/retry"
)

// Wait loop names used in metrics.
const (
	loopGatewayActive = "gateway-active"
	loopEgressRules   = "egress-rules"
	loopSubnets       = "subnets"
	loopObjects       = "bucket-objects"
)

// waitGatewayActive refreshes gw until it is active or the attempt ceiling
// is reached. Running out of attempts is not an error: the last known
// gateway is returned and creation continues. A failed gateway ends the
// wait with an error.
func waitGatewayActive(ctx *provisioning.Context, gw *cloud.Gateway) (*cloud.Gateway, error) {
	current := gw
	attempts := 0

	done, err := retry.Poll(ctx, ctx.Timeouts.GatewayWaitAttempts, ctx.Timeouts.GatewayWaitInterval,
		func(attempt int) (bool, error) {
			attempts = attempt
			refreshed, err := ctx.Backend.RefreshGateway(ctx, current)
			if err != nil {
				if cloud.IsTransient(err) {
					return false, nil
				}
				return false, err
			}
			current = refreshed
			if current.Status == cloud.GatewayFailed {
				return false, fmt.Errorf("gateway %s entered state %s", current.Name, current.Status)
			}
			return current.Active(), nil
		})
	ctx.Metrics.ObserveWait(loopGatewayActive, attempts, done)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for gateway %s: %w", gw.Name, err)
	}
	if !done {
		provisioning.LogWaitExhausted(ctx.Observer, cloud.KindGateway, gw.Name, "active", attempts)
	}
	return current, nil
}

// drain deletes the children returned by list until none remain. Each
// attempt lists, deletes what it found and re-lists on the next attempt.
// The last delete round is followed by one more listing. Transient backend
// errors only cost an attempt. A parent that still has children after the
// ceiling is an error, since deleting it would fail.
func drain[T any](
	ctx *provisioning.Context,
	loop string,
	parent string,
	list func() ([]T, error),
	remove func([]T) error,
) error {
	attempts := 0

	done, err := retry.Poll(ctx, ctx.Timeouts.DrainAttempts, ctx.Timeouts.DrainInterval,
		func(attempt int) (bool, error) {
			attempts = attempt
			items, err := list()
			if err != nil {
				if cloud.IsTransient(err) {
					return false, nil
				}
				return false, err
			}
			if len(items) == 0 {
				return true, nil
			}
			if err := remove(items); err != nil && !cloud.IsTransient(err) {
				return false, err
			}
			return false, nil
		})
	if err == nil && !done {
		items, listErr := list()
		switch {
		case listErr != nil && !cloud.IsTransient(listErr):
			err = listErr
		case listErr == nil && len(items) == 0:
			done = true
		}
	}
	ctx.Metrics.ObserveWait(loop, attempts, done)
	if err != nil {
		return fmt.Errorf("failed to drain %s of %s: %w", loop, parent, err)
	}
	if !done {
		return fmt.Errorf("%s of %s not drained after %d attempts", loop, parent, attempts)
	}
	return nil
}
