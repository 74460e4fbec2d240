package hcloud

import (
	"context"

	"github.com/imamik/wsctl/internal/cloud"
)

// Hetzner networks cannot be peered.

func (c *RealClient) FindPeering(context.Context, string) (*cloud.Peering, error) {
	return nil, cloud.UnsupportedError(BackendName, cloud.KindPeering)
}

func (c *RealClient) CreatePeering(context.Context, cloud.PeeringSpec) (*cloud.Peering, error) {
	return nil, cloud.UnsupportedError(BackendName, cloud.KindPeering)
}

func (c *RealClient) DeletePeering(context.Context, *cloud.Peering) error {
	return cloud.UnsupportedError(BackendName, cloud.KindPeering)
}
