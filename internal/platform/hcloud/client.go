package hcloud

import (
	"net"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/config"
	"github.com/imamik/wsctl/internal/platform/s3"
)

// BackendName identifies the Hetzner backend in logs and metrics.
const BackendName = "hetzner"

var _ cloud.Backend = (*RealClient)(nil)

// RealClient implements cloud.Backend using the Hetzner Cloud API.
type RealClient struct {
	client   *hcloud.Client
	timeouts *config.Timeouts
	storage  *s3.Client

	location       string
	networkZone    hcloud.NetworkZone
	gatewayIP      net.IP
	workingNetwork string
}

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithStorage enables managed storage through an Object Storage client.
func WithStorage(s *s3.Client) ClientOption {
	return func(c *RealClient) {
		c.storage = s
	}
}

// NewRealClient creates a new RealClient for the given Hetzner settings.
func NewRealClient(cfg config.HetznerConfig, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client:         hcloud.NewClient(hcloud.WithToken(cfg.Token), hcloud.WithApplication("wsctl", "")),
		timeouts:       config.LoadTimeouts(),
		location:       cfg.Location,
		networkZone:    hcloud.NetworkZone(cfg.NetworkZone),
		gatewayIP:      net.ParseIP(cfg.GatewayIP),
		workingNetwork: cfg.WorkingNetwork,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements cloud.Backend.
func (c *RealClient) Name() string {
	return BackendName
}

// HCloudClient returns the underlying hcloud.Client for advanced operations.
func (c *RealClient) HCloudClient() *hcloud.Client {
	return c.client
}
