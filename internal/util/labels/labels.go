package labels

import (
	"maps"
	"sort"
	"strings"
)

// Standard label keys for workspace resources.
const (
	// KeyWorkspace identifies which workspace a resource belongs to
	KeyWorkspace = "wsctl.io/workspace"

	// KeyKind identifies the workspace resource kind (network, subnet, ...)
	KeyKind = "wsctl.io/kind"

	// KeyRole identifies the role of a resource with multiplicity
	// (public/private subnet, head/worker profile)
	KeyRole = "wsctl.io/role"

	// KeyName carries the deterministic resource name on backends where
	// the resource itself has no name field (subnets, routes).
	KeyName = "wsctl.io/name"

	// KeyNetwork records the network ID a resource belongs to on backends
	// where the resource carries no network reference (Hetzner firewalls,
	// floating IPs).
	KeyNetwork = "wsctl.io/network"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "wsctl.io/managed-by"
)

// ManagedByWsctl is the KeyManagedBy value for resources created by wsctl.
const ManagedByWsctl = "wsctl"

// LabelBuilder provides a fluent interface for building resource labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a new label builder with the workspace name pre-set.
func NewLabelBuilder(workspace string) *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyWorkspace: workspace,
			KeyManagedBy: ManagedByWsctl,
		},
	}
}

// WithKind adds the resource kind label.
func (lb *LabelBuilder) WithKind(kind string) *LabelBuilder {
	lb.labels[KeyKind] = kind
	return lb
}

// WithRole adds a role label (e.g., "public", "head").
func (lb *LabelBuilder) WithRole(role string) *LabelBuilder {
	if role != "" {
		lb.labels[KeyRole] = role
	}
	return lb
}

// WithName records the deterministic resource name.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// WithNetwork records the network ID the resource belongs to.
func (lb *LabelBuilder) WithNetwork(id string) *LabelBuilder {
	if id != "" {
		lb.labels[KeyNetwork] = id
	}
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	maps.Copy(lb.labels, extra)
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	return maps.Clone(lb.labels)
}

// SelectorForWorkspace returns a label selector string for all resources in a workspace.
func SelectorForWorkspace(workspace string) string {
	return KeyWorkspace + "=" + workspace
}

// Selector converts a label map into a comma separated selector.
// Keys are sorted so the result is stable.
func Selector(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ",")
}
