package fakes

import (
	"context"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindIdentityProfile(_ context.Context, name string) (*cloud.IdentityProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindIdentityProfile, name); err != nil {
		return nil, err
	}
	if p, ok := b.identities[name]; ok {
		return copyOf(p), nil
	}
	return nil, nil
}

func (b *Backend) CreateIdentityProfile(_ context.Context, spec cloud.IdentityProfileSpec) (*cloud.IdentityProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindIdentityProfile, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.identities[spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindIdentityProfile, spec.Name)
	}
	p := &cloud.IdentityProfile{ID: b.id("profile"), Name: spec.Name, Role: spec.Role}
	b.identities[spec.Name] = p
	return copyOf(p), nil
}

func (b *Backend) DeleteIdentityProfile(_ context.Context, profile *cloud.IdentityProfile) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindIdentityProfile, profile.Name); err != nil {
		return err
	}
	if _, ok := b.identities[profile.Name]; !ok {
		return cloud.NotFoundError(cloud.KindIdentityProfile, profile.Name)
	}
	delete(b.identities, profile.Name)
	return nil
}
