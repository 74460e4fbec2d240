// Package naming provides the deterministic naming scheme for workspace resources.
//
// Every name is a pure function of the workspace name, the resource kind and,
// for kinds with multiplicity, a role or index. Existence checks and
// idempotent re-creation rely on this: the cloud backend is the only store of
// workspace state, and resources are found again by name alone.
//
// Names follow the pattern wsctl-{workspace}-{kind}, e.g. wsctl-dev-network,
// wsctl-dev-private-1-subnet, wsctl-dev-head-profile.
package naming
