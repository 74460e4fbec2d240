package hcloud

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/keygen"
	"github.com/imamik/wsctl/internal/util/labels"
)

func toProfile(key *hcloud.SSHKey) *cloud.IdentityProfile {
	return &cloud.IdentityProfile{
		ID:   strconv.FormatInt(key.ID, 10),
		Name: key.Name,
		Role: cloud.IdentityRole(key.Labels[labels.KeyRole]),
	}
}

// FindIdentityProfile returns the SSH key with the given name, or nil.
func (c *RealClient) FindIdentityProfile(ctx context.Context, name string) (*cloud.IdentityProfile, error) {
	key, _, err := c.client.SSHKey.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get ssh key %s: %w", name, classify(err, cloud.KindIdentityProfile, name))
	}
	if key == nil {
		return nil, nil
	}
	return toProfile(key), nil
}

// CreateIdentityProfile generates an ed25519 key pair and registers its
// public half. The private key is only returned here, in Secret.
func (c *RealClient) CreateIdentityProfile(ctx context.Context, spec cloud.IdentityProfileSpec) (*cloud.IdentityProfile, error) {
	var pair *keygen.KeyPair

	key, err := (&CreateOperation[*hcloud.SSHKey, hcloud.SSHKeyCreateOpts]{
		Name: spec.Name,
		Kind: cloud.KindIdentityProfile,
		Get:  c.client.SSHKey.Get,
		Create: func(ctx context.Context, opts hcloud.SSHKeyCreateOpts) (*CreateResult[*hcloud.SSHKey], *hcloud.Response, error) {
			kp, err := keygen.Generate(keygen.Ed25519, spec.Name)
			if err != nil {
				return nil, nil, err
			}
			pair = kp
			opts.PublicKey = string(kp.PublicKey)
			return simpleCreate(c.client.SSHKey.Create)(ctx, opts)
		},
		CreateOptsMapper: func() hcloud.SSHKeyCreateOpts {
			return hcloud.SSHKeyCreateOpts{
				Name: spec.Name,
				Labels: labels.NewLabelBuilder(spec.Labels[labels.KeyWorkspace]).
					Merge(spec.Labels).
					WithRole(string(spec.Role)).
					Build(),
			}
		},
	}).Execute(ctx, c)
	if err != nil {
		return nil, err
	}

	profile := toProfile(key)
	profile.Role = spec.Role
	profile.Secret = pair.PrivateKey
	return profile, nil
}

// DeleteIdentityProfile deletes the SSH key.
func (c *RealClient) DeleteIdentityProfile(ctx context.Context, profile *cloud.IdentityProfile) error {
	return (&DeleteOperation[*hcloud.SSHKey]{
		Name:   profile.ID,
		Kind:   cloud.KindIdentityProfile,
		Get:    c.client.SSHKey.Get,
		Delete: c.client.SSHKey.Delete,
	}).Execute(ctx, c)
}
