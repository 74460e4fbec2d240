package fakes

import (
	"context"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindPeering(_ context.Context, name string) (*cloud.Peering, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindPeering, name); err != nil {
		return nil, err
	}
	if p, ok := b.peerings[name]; ok {
		return copyOf(p), nil
	}
	return nil, nil
}

func (b *Backend) CreatePeering(_ context.Context, spec cloud.PeeringSpec) (*cloud.Peering, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindPeering, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.peerings[spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindPeering, spec.Name)
	}
	p := &cloud.Peering{
		ID:                 b.id("pcx"),
		Name:               spec.Name,
		RequesterNetworkID: spec.Requester.ID,
		AccepterNetworkID:  spec.Accepter.ID,
	}
	b.peerings[spec.Name] = p
	return copyOf(p), nil
}

func (b *Backend) DeletePeering(_ context.Context, peering *cloud.Peering) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindPeering, peering.Name); err != nil {
		return err
	}
	if _, ok := b.peerings[peering.Name]; !ok {
		return cloud.NotFoundError(cloud.KindPeering, peering.Name)
	}
	delete(b.peerings, peering.Name)
	return nil
}
