// Package hcloud implements the workspace capability interface on Hetzner
// Cloud.
//
// # Resource mapping
//
// Hetzner has no one-to-one equivalent for several workspace resources, so
// the adapter maps them as follows:
//
//   - network: a Hetzner network
//   - subnet: a "cloud" subnet of the network; the workspace name of each
//     subnet is kept in a network label keyed by its IP range
//   - gateway: a floating IP that serves as the egress address
//   - egress rule: a network label per rule plus one shared default route
//     (0.0.0.0/0) pointing at the configured NAT host; the route is added
//     with the first rule and removed with the last
//   - security group: a firewall (inbound rules only)
//   - identity profile: an SSH key generated per role
//   - storage bucket: Hetzner Object Storage through the s3 package
//
// Network peering does not exist on Hetzner Cloud and returns
// cloud.ErrUnsupported.
//
// # Generic Operations
//
// CreateOperation and DeleteOperation give every resource type the same
// create-or-conflict and idempotent-delete behavior. Deletes run under the
// configured delete timeout and retry locked resources with exponential
// backoff.
//
// # Errors
//
// API errors are classified into the cloud error kinds: not_found becomes
// cloud.ErrNotFound, uniqueness_error becomes cloud.ErrConflict, and locked,
// rate-limit and service errors are marked transient.
package hcloud
