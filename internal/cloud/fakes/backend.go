package fakes

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/imamik/wsctl/internal/cloud"
)

// Operation names recorded in the call trace.
const (
	OpFind    = "find"
	OpList    = "list"
	OpRefresh = "refresh"
	OpCreate  = "create"
	OpDelete  = "delete"
	OpAdd     = "add"
	OpRemove  = "remove"
)

// Call is one recorded backend invocation.
type Call struct {
	Op   string
	Kind cloud.Kind
	Name string
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s %s", c.Op, c.Kind, c.Name)
}

// Mutating reports whether the call changes backend state.
func (c Call) Mutating() bool {
	switch c.Op {
	case OpCreate, OpDelete, OpAdd, OpRemove:
		return true
	}
	return false
}

// Backend is an in-memory cloud.Backend. The zero value is not usable; call New.
type Backend struct {
	mu sync.Mutex

	// GatewayActivateAfter is the number of refreshes a new gateway stays
	// pending. Negative values keep it pending forever.
	GatewayActivateAfter int
	// GatewayFails makes the next gateway refresh report a failed gateway.
	GatewayFails bool
	// DeleteBatch limits how many objects or egress rules a single delete
	// round removes when draining. Zero removes everything.
	DeleteBatch int
	// StuckChildren makes object and egress-rule deletion a no-op.
	StuckChildren bool

	working *cloud.Network

	networks   map[string]*cloud.Network
	subnets    map[string]*cloud.Subnet
	gateways   map[string]*gatewayState
	egress     map[string]*cloud.EgressRule
	groups     map[string]*groupState
	peerings   map[string]*cloud.Peering
	identities map[string]*cloud.IdentityProfile
	buckets    map[string]*bucketState

	failures map[string]error
	calls    []Call
	nextID   int
}

type gatewayState struct {
	gw        *cloud.Gateway
	refreshes int
}

type groupState struct {
	sg    *cloud.SecurityGroup
	rules []cloud.Rule
}

type bucketState struct {
	bucket  *cloud.Bucket
	objects map[string]struct{}
}

var _ cloud.Backend = (*Backend)(nil)

// New returns an empty fake backend whose gateways activate on first refresh.
func New() *Backend {
	return &Backend{
		networks:   make(map[string]*cloud.Network),
		subnets:    make(map[string]*cloud.Subnet),
		gateways:   make(map[string]*gatewayState),
		egress:     make(map[string]*cloud.EgressRule),
		groups:     make(map[string]*groupState),
		peerings:   make(map[string]*cloud.Peering),
		identities: make(map[string]*cloud.IdentityProfile),
		buckets:    make(map[string]*bucketState),
		failures:   make(map[string]error),
	}
}

func (b *Backend) Name() string { return "fake" }

// SetWorkingNetwork registers the network returned by WorkingNetwork.
func (b *Backend) SetWorkingNetwork(name, cidr string) *cloud.Network {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := &cloud.Network{ID: b.id("vpc"), Name: name, CIDR: cidr, Working: true}
	b.working = n
	b.networks[n.ID] = n
	return n
}

// FailOn makes every op on kind return err until cleared with FailOn(op, kind, nil).
func (b *Backend) FailOn(op string, kind cloud.Kind, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := op + ":" + string(kind)
	if err == nil {
		delete(b.failures, key)
		return
	}
	b.failures[key] = err
}

// Calls returns a copy of the call trace.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.calls)
}

// MutatingCalls returns the calls that changed state.
func (b *Backend) MutatingCalls() []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Mutating() {
			out = append(out, c)
		}
	}
	return out
}

// CallsFor returns the recorded calls with the given op, in order.
func (b *Backend) CallsFor(op string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call trace.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// PutObject stores an object in an existing bucket.
func (b *Backend) PutObject(bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	bs, ok := b.buckets[bucket]
	if !ok {
		return cloud.NotFoundError(cloud.KindStorageBucket, bucket)
	}
	bs.objects[key] = struct{}{}
	return nil
}

// ResourceCount returns how many resources of every kind exist, excluding
// the working network.
func (b *Backend) ResourceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(b.networks) + len(b.subnets) + len(b.gateways) + len(b.egress) +
		len(b.groups) + len(b.peerings) + len(b.identities) + len(b.buckets)
	if b.working != nil {
		n--
	}
	return n
}

// record appends the call and returns the injected failure for it, if any.
// Callers must hold b.mu.
func (b *Backend) record(op string, kind cloud.Kind, name string) error {
	b.calls = append(b.calls, Call{Op: op, Kind: kind, Name: name})
	if err, ok := b.failures[op+":"+string(kind)]; ok {
		return err
	}
	return nil
}

func (b *Backend) id(prefix string) string {
	b.nextID++
	return fmt.Sprintf("%s-%04d", prefix, b.nextID)
}

// batch picks the keys removed in one delete round.
func (b *Backend) batch(keys []string) []string {
	if b.StuckChildren {
		return nil
	}
	if b.DeleteBatch > 0 && len(keys) > b.DeleteBatch {
		return keys[:b.DeleteBatch]
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := slices.Collect(maps.Keys(m))
	sort.Strings(keys)
	return keys
}
