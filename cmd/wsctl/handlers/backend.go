package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/cloud/fakes"
	"github.com/imamik/wsctl/internal/config"
	awsInternal "github.com/imamik/wsctl/internal/platform/aws"
	hcloudInternal "github.com/imamik/wsctl/internal/platform/hcloud"
	"github.com/imamik/wsctl/internal/platform/s3"
)

// fakeWorkingCIDR is the working network the fake backend reports.
const fakeWorkingCIDR = "172.31.0.0/16"

// defaultBackend creates the adapter for cfg.Backend.
func defaultBackend(ctx context.Context, cfg *config.Config, timeouts *config.Timeouts) (cloud.Backend, error) {
	switch cfg.Backend {
	case config.BackendAWS:
		client, err := awsInternal.New(ctx, cfg.AWS, awsInternal.WithTimeouts(timeouts))
		if err != nil {
			return nil, err
		}
		return client, nil

	case config.BackendHetzner:
		opts := []hcloudInternal.ClientOption{hcloudInternal.WithTimeouts(timeouts)}
		if cfg.ManagedStorage {
			storage, err := newObjectStorage(cfg)
			if err != nil {
				return nil, err
			}
			opts = append(opts, hcloudInternal.WithStorage(storage))
		}
		return hcloudInternal.NewRealClient(cfg.Hetzner, opts...), nil

	case config.BackendFake:
		// Dry runs: state lives only for the duration of the command.
		backend := fakes.New()
		backend.SetWorkingNetwork("working", fakeWorkingCIDR)
		return backend, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

// newObjectStorage creates the S3 client for Hetzner Object Storage. The
// region defaults to the server location.
func newObjectStorage(cfg *config.Config) (*s3.Client, error) {
	region := cfg.Storage.Region
	if region == "" {
		region = cfg.Hetzner.Location
	}
	return s3.NewClient(cfg.Storage.Endpoint, region, cfg.Storage.AccessKey, cfg.Storage.SecretKey)
}
