package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/smithy-go"
)

func apiError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

// matches reports whether a resource passes every filter. values returns
// the resource's values for a filter name.
func matches(filters []types.Filter, values func(name string) []string) bool {
	for _, f := range filters {
		have := values(awssdk.ToString(f.Name))
		if !slices.ContainsFunc(f.Values, func(v string) bool { return slices.Contains(have, v) }) {
			return false
		}
	}
	return true
}

func tagValues(tags []types.Tag, name string) []string {
	if key, ok := strings.CutPrefix(name, "tag:"); ok {
		if v := tagValue(tags, key); v != "" {
			return []string{v}
		}
	}
	return nil
}

func specTags(specs []types.TagSpecification) []types.Tag {
	var tags []types.Tag
	for _, s := range specs {
		tags = append(tags, s.Tags...)
	}
	return tags
}

// fakeEC2 is an in-memory EC2 API. NAT gateways become available on the
// first describe after creation and deleted on the first describe after
// deletion.
type fakeEC2 struct {
	mu     sync.Mutex
	nextID int

	vpcs        map[string]*types.Vpc
	subnets     map[string]*types.Subnet
	igws        map[string]*types.InternetGateway
	addresses   map[string]*types.Address
	nats        map[string]*types.NatGateway
	routeTables map[string]*types.RouteTable
	groups      map[string]*types.SecurityGroup
	peerings    map[string]*types.VpcPeeringConnection

	// errs injects an error for the named operation.
	errs  map[string]error
	calls []string
}

func newFakeEC2() *fakeEC2 {
	return &fakeEC2{
		vpcs:        make(map[string]*types.Vpc),
		subnets:     make(map[string]*types.Subnet),
		igws:        make(map[string]*types.InternetGateway),
		addresses:   make(map[string]*types.Address),
		nats:        make(map[string]*types.NatGateway),
		routeTables: make(map[string]*types.RouteTable),
		groups:      make(map[string]*types.SecurityGroup),
		peerings:    make(map[string]*types.VpcPeeringConnection),
		errs:        make(map[string]error),
	}
}

func (f *fakeEC2) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%04d", prefix, f.nextID)
}

// call records the operation and returns an injected error, if any.
func (f *fakeEC2) call(op string) error {
	f.calls = append(f.calls, op)
	return f.errs[op]
}

func (f *fakeEC2) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

// addVPC seeds a VPC with a main route table, as AWS does.
func (f *fakeEC2) addVPC(cidr string, tags ...types.Tag) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addVPCLocked(cidr, tags)
}

func (f *fakeEC2) addVPCLocked(cidr string, tags []types.Tag) string {
	id := f.id("vpc")
	f.vpcs[id] = &types.Vpc{VpcId: awssdk.String(id), CidrBlock: awssdk.String(cidr), Tags: tags}
	rt := f.id("rtb")
	f.routeTables[rt] = &types.RouteTable{
		RouteTableId: awssdk.String(rt),
		VpcId:        awssdk.String(id),
		Routes:       []types.Route{{DestinationCidrBlock: awssdk.String(cidr), GatewayId: awssdk.String("local")}},
		Associations: []types.RouteTableAssociation{{Main: awssdk.Bool(true), RouteTableAssociationId: awssdk.String(f.id("rtbassoc"))}},
	}
	return id
}

func (f *fakeEC2) routeTable(id string) types.RouteTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.routeTables[id]
}

func (f *fakeEC2) vpcRouteTables(vpcID string) []types.RouteTable {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.RouteTable
	for _, rt := range f.routeTables {
		if awssdk.ToString(rt.VpcId) == vpcID {
			out = append(out, *rt)
		}
	}
	return out
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeVpcs"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeVpcsOutput{}
	for _, id := range in.VpcIds {
		if _, ok := f.vpcs[id]; !ok {
			return nil, apiError("InvalidVpcID.NotFound", "vpc "+id)
		}
	}
	for id, v := range f.vpcs {
		if len(in.VpcIds) > 0 && !slices.Contains(in.VpcIds, id) {
			continue
		}
		if matches(in.Filters, func(name string) []string { return tagValues(v.Tags, name) }) {
			out.Vpcs = append(out.Vpcs, *v)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateVpc(_ context.Context, in *ec2.CreateVpcInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateVpc"); err != nil {
		return nil, err
	}
	id := f.addVPCLocked(awssdk.ToString(in.CidrBlock), specTags(in.TagSpecifications))
	return &ec2.CreateVpcOutput{Vpc: f.vpcs[id]}, nil
}

func (f *fakeEC2) ModifyVpcAttribute(_ context.Context, _ *ec2.ModifyVpcAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifyVpcAttributeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &ec2.ModifyVpcAttributeOutput{}, f.call("ModifyVpcAttribute")
}

func (f *fakeEC2) DeleteVpc(_ context.Context, in *ec2.DeleteVpcInput, _ ...func(*ec2.Options)) (*ec2.DeleteVpcOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteVpc"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.VpcId)
	if _, ok := f.vpcs[id]; !ok {
		return nil, apiError("InvalidVpcID.NotFound", "vpc "+id)
	}
	for _, s := range f.subnets {
		if awssdk.ToString(s.VpcId) == id {
			return nil, apiError("DependencyViolation", "vpc has subnets")
		}
	}
	for rtID, rt := range f.routeTables {
		if awssdk.ToString(rt.VpcId) == id {
			delete(f.routeTables, rtID)
		}
	}
	delete(f.vpcs, id)
	return &ec2.DeleteVpcOutput{}, nil
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeSubnets"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeSubnetsOutput{}
	for _, s := range f.subnets {
		ok := matches(in.Filters, func(name string) []string {
			if name == "vpc-id" {
				return []string{awssdk.ToString(s.VpcId)}
			}
			return tagValues(s.Tags, name)
		})
		if ok {
			out.Subnets = append(out.Subnets, *s)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSubnet(_ context.Context, in *ec2.CreateSubnetInput, _ ...func(*ec2.Options)) (*ec2.CreateSubnetOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateSubnet"); err != nil {
		return nil, err
	}
	if _, ok := f.vpcs[awssdk.ToString(in.VpcId)]; !ok {
		return nil, apiError("InvalidVpcID.NotFound", "vpc")
	}
	id := f.id("subnet")
	f.subnets[id] = &types.Subnet{
		SubnetId:         awssdk.String(id),
		VpcId:            in.VpcId,
		CidrBlock:        in.CidrBlock,
		AvailabilityZone: awssdk.String("eu-west-1a"),
		Tags:             specTags(in.TagSpecifications),
	}
	return &ec2.CreateSubnetOutput{Subnet: f.subnets[id]}, nil
}

func (f *fakeEC2) ModifySubnetAttribute(_ context.Context, in *ec2.ModifySubnetAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifySubnetAttributeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ModifySubnetAttribute"); err != nil {
		return nil, err
	}
	s, ok := f.subnets[awssdk.ToString(in.SubnetId)]
	if !ok {
		return nil, apiError("InvalidSubnetID.NotFound", "subnet")
	}
	if in.MapPublicIpOnLaunch != nil {
		s.MapPublicIpOnLaunch = in.MapPublicIpOnLaunch.Value
	}
	return &ec2.ModifySubnetAttributeOutput{}, nil
}

func (f *fakeEC2) DeleteSubnet(_ context.Context, in *ec2.DeleteSubnetInput, _ ...func(*ec2.Options)) (*ec2.DeleteSubnetOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteSubnet"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.SubnetId)
	if _, ok := f.subnets[id]; !ok {
		return nil, apiError("InvalidSubnetID.NotFound", "subnet "+id)
	}
	delete(f.subnets, id)
	return &ec2.DeleteSubnetOutput{}, nil
}

func (f *fakeEC2) DescribeInternetGateways(_ context.Context, in *ec2.DescribeInternetGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeInternetGatewaysOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeInternetGateways"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeInternetGatewaysOutput{}
	for _, igw := range f.igws {
		ok := matches(in.Filters, func(name string) []string {
			if name == "attachment.vpc-id" {
				var ids []string
				for _, a := range igw.Attachments {
					ids = append(ids, awssdk.ToString(a.VpcId))
				}
				return ids
			}
			return tagValues(igw.Tags, name)
		})
		if ok {
			out.InternetGateways = append(out.InternetGateways, *igw)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateInternetGateway(_ context.Context, in *ec2.CreateInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateInternetGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateInternetGateway"); err != nil {
		return nil, err
	}
	id := f.id("igw")
	f.igws[id] = &types.InternetGateway{InternetGatewayId: awssdk.String(id), Tags: specTags(in.TagSpecifications)}
	return &ec2.CreateInternetGatewayOutput{InternetGateway: f.igws[id]}, nil
}

func (f *fakeEC2) AttachInternetGateway(_ context.Context, in *ec2.AttachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.AttachInternetGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AttachInternetGateway"); err != nil {
		return nil, err
	}
	igw, ok := f.igws[awssdk.ToString(in.InternetGatewayId)]
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound", "igw")
	}
	igw.Attachments = append(igw.Attachments, types.InternetGatewayAttachment{
		VpcId: in.VpcId,
		State: types.AttachmentStatusAttached,
	})
	return &ec2.AttachInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DetachInternetGateway(_ context.Context, in *ec2.DetachInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DetachInternetGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DetachInternetGateway"); err != nil {
		return nil, err
	}
	igw, ok := f.igws[awssdk.ToString(in.InternetGatewayId)]
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound", "igw")
	}
	igw.Attachments = nil
	return &ec2.DetachInternetGatewayOutput{}, nil
}

func (f *fakeEC2) DeleteInternetGateway(_ context.Context, in *ec2.DeleteInternetGatewayInput, _ ...func(*ec2.Options)) (*ec2.DeleteInternetGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteInternetGateway"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.InternetGatewayId)
	igw, ok := f.igws[id]
	if !ok {
		return nil, apiError("InvalidInternetGatewayID.NotFound", "igw")
	}
	if len(igw.Attachments) > 0 {
		return nil, apiError("DependencyViolation", "igw is attached")
	}
	delete(f.igws, id)
	return &ec2.DeleteInternetGatewayOutput{}, nil
}

func (f *fakeEC2) AllocateAddress(_ context.Context, in *ec2.AllocateAddressInput, _ ...func(*ec2.Options)) (*ec2.AllocateAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AllocateAddress"); err != nil {
		return nil, err
	}
	id := f.id("eipalloc")
	ip := fmt.Sprintf("198.51.100.%d", f.nextID)
	f.addresses[id] = &types.Address{
		AllocationId: awssdk.String(id),
		PublicIp:     awssdk.String(ip),
		Tags:         specTags(in.TagSpecifications),
	}
	return &ec2.AllocateAddressOutput{AllocationId: awssdk.String(id), PublicIp: awssdk.String(ip)}, nil
}

func (f *fakeEC2) ReleaseAddress(_ context.Context, in *ec2.ReleaseAddressInput, _ ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ReleaseAddress"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.AllocationId)
	if _, ok := f.addresses[id]; !ok {
		return nil, apiError("InvalidAllocationID.NotFound", "address "+id)
	}
	delete(f.addresses, id)
	return &ec2.ReleaseAddressOutput{}, nil
}

func (f *fakeEC2) DescribeNatGateways(_ context.Context, in *ec2.DescribeNatGatewaysInput, _ ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeNatGateways"); err != nil {
		return nil, err
	}
	for _, id := range in.NatGatewayIds {
		if _, ok := f.nats[id]; !ok {
			return nil, apiError("NatGatewayNotFound", "nat "+id)
		}
	}
	out := &ec2.DescribeNatGatewaysOutput{}
	for id, nat := range f.nats {
		if len(in.NatGatewayIds) > 0 && !slices.Contains(in.NatGatewayIds, id) {
			continue
		}
		ok := matches(in.Filter, func(name string) []string {
			if name == "state" {
				return []string{string(nat.State)}
			}
			return tagValues(nat.Tags, name)
		})
		if ok {
			out.NatGateways = append(out.NatGateways, *nat)
		}
		// state advances after it has been observed
		switch nat.State {
		case types.NatGatewayStatePending:
			nat.State = types.NatGatewayStateAvailable
		case types.NatGatewayStateDeleting:
			nat.State = types.NatGatewayStateDeleted
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateNatGateway(_ context.Context, in *ec2.CreateNatGatewayInput, _ ...func(*ec2.Options)) (*ec2.CreateNatGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateNatGateway"); err != nil {
		return nil, err
	}
	subnet, ok := f.subnets[awssdk.ToString(in.SubnetId)]
	if !ok {
		return nil, apiError("InvalidSubnetID.NotFound", "subnet")
	}
	addr, ok := f.addresses[awssdk.ToString(in.AllocationId)]
	if !ok {
		return nil, apiError("InvalidAllocationID.NotFound", "address")
	}
	id := f.id("nat")
	f.nats[id] = &types.NatGateway{
		NatGatewayId: awssdk.String(id),
		SubnetId:     in.SubnetId,
		VpcId:        subnet.VpcId,
		State:        types.NatGatewayStatePending,
		NatGatewayAddresses: []types.NatGatewayAddress{{
			AllocationId: addr.AllocationId,
			PublicIp:     addr.PublicIp,
		}},
		Tags: specTags(in.TagSpecifications),
	}
	out := *f.nats[id]
	return &ec2.CreateNatGatewayOutput{NatGateway: &out}, nil
}

func (f *fakeEC2) DeleteNatGateway(_ context.Context, in *ec2.DeleteNatGatewayInput, _ ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteNatGateway"); err != nil {
		return nil, err
	}
	nat, ok := f.nats[awssdk.ToString(in.NatGatewayId)]
	if !ok {
		return nil, apiError("NatGatewayNotFound", "nat")
	}
	nat.State = types.NatGatewayStateDeleting
	return &ec2.DeleteNatGatewayOutput{NatGatewayId: in.NatGatewayId}, nil
}

func (f *fakeEC2) DescribeRouteTables(_ context.Context, in *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeRouteTables"); err != nil {
		return nil, err
	}
	for _, id := range in.RouteTableIds {
		if _, ok := f.routeTables[id]; !ok {
			return nil, apiError("InvalidRouteTableID.NotFound", "route table "+id)
		}
	}
	out := &ec2.DescribeRouteTablesOutput{}
	for id, rt := range f.routeTables {
		if len(in.RouteTableIds) > 0 && !slices.Contains(in.RouteTableIds, id) {
			continue
		}
		ok := matches(in.Filters, func(name string) []string {
			switch name {
			case "vpc-id":
				return []string{awssdk.ToString(rt.VpcId)}
			case "route.vpc-peering-connection-id":
				var ids []string
				for _, r := range rt.Routes {
					ids = append(ids, awssdk.ToString(r.VpcPeeringConnectionId))
				}
				return ids
			}
			return tagValues(rt.Tags, name)
		})
		if ok {
			out.RouteTables = append(out.RouteTables, *rt)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateRouteTable(_ context.Context, in *ec2.CreateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateRouteTable"); err != nil {
		return nil, err
	}
	vpc, ok := f.vpcs[awssdk.ToString(in.VpcId)]
	if !ok {
		return nil, apiError("InvalidVpcID.NotFound", "vpc")
	}
	id := f.id("rtb")
	f.routeTables[id] = &types.RouteTable{
		RouteTableId: awssdk.String(id),
		VpcId:        in.VpcId,
		Routes:       []types.Route{{DestinationCidrBlock: vpc.CidrBlock, GatewayId: awssdk.String("local")}},
		Tags:         specTags(in.TagSpecifications),
	}
	return &ec2.CreateRouteTableOutput{RouteTable: f.routeTables[id]}, nil
}

func (f *fakeEC2) DeleteRouteTable(_ context.Context, in *ec2.DeleteRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DeleteRouteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteRouteTable"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.RouteTableId)
	rt, ok := f.routeTables[id]
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound", "route table "+id)
	}
	if len(rt.Associations) > 0 {
		return nil, apiError("DependencyViolation", "route table has associations")
	}
	delete(f.routeTables, id)
	return &ec2.DeleteRouteTableOutput{}, nil
}

func (f *fakeEC2) CreateRoute(_ context.Context, in *ec2.CreateRouteInput, _ ...func(*ec2.Options)) (*ec2.CreateRouteOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateRoute"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTables[awssdk.ToString(in.RouteTableId)]
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound", "route table")
	}
	for _, r := range rt.Routes {
		if awssdk.ToString(r.DestinationCidrBlock) == awssdk.ToString(in.DestinationCidrBlock) {
			return nil, apiError("RouteAlreadyExists", "route exists")
		}
	}
	rt.Routes = append(rt.Routes, types.Route{
		DestinationCidrBlock:   in.DestinationCidrBlock,
		GatewayId:              in.GatewayId,
		NatGatewayId:           in.NatGatewayId,
		VpcPeeringConnectionId: in.VpcPeeringConnectionId,
	})
	return &ec2.CreateRouteOutput{Return: awssdk.Bool(true)}, nil
}

func (f *fakeEC2) DeleteRoute(_ context.Context, in *ec2.DeleteRouteInput, _ ...func(*ec2.Options)) (*ec2.DeleteRouteOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteRoute"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTables[awssdk.ToString(in.RouteTableId)]
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound", "route table")
	}
	for i, r := range rt.Routes {
		if awssdk.ToString(r.DestinationCidrBlock) == awssdk.ToString(in.DestinationCidrBlock) {
			rt.Routes = slices.Delete(rt.Routes, i, i+1)
			return &ec2.DeleteRouteOutput{}, nil
		}
	}
	return nil, apiError("InvalidRoute.NotFound", "route")
}

func (f *fakeEC2) AssociateRouteTable(_ context.Context, in *ec2.AssociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.AssociateRouteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AssociateRouteTable"); err != nil {
		return nil, err
	}
	rt, ok := f.routeTables[awssdk.ToString(in.RouteTableId)]
	if !ok {
		return nil, apiError("InvalidRouteTableID.NotFound", "route table")
	}
	for _, other := range f.routeTables {
		for _, a := range other.Associations {
			if awssdk.ToString(a.SubnetId) == awssdk.ToString(in.SubnetId) {
				return nil, apiError("Resource.AlreadyAssociated", "subnet already associated")
			}
		}
	}
	id := f.id("rtbassoc")
	rt.Associations = append(rt.Associations, types.RouteTableAssociation{
		RouteTableAssociationId: awssdk.String(id),
		RouteTableId:            in.RouteTableId,
		SubnetId:                in.SubnetId,
		Main:                    awssdk.Bool(false),
	})
	return &ec2.AssociateRouteTableOutput{AssociationId: awssdk.String(id)}, nil
}

func (f *fakeEC2) DisassociateRouteTable(_ context.Context, in *ec2.DisassociateRouteTableInput, _ ...func(*ec2.Options)) (*ec2.DisassociateRouteTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DisassociateRouteTable"); err != nil {
		return nil, err
	}
	for _, rt := range f.routeTables {
		for i, a := range rt.Associations {
			if awssdk.ToString(a.RouteTableAssociationId) == awssdk.ToString(in.AssociationId) {
				rt.Associations = slices.Delete(rt.Associations, i, i+1)
				return &ec2.DisassociateRouteTableOutput{}, nil
			}
		}
	}
	return nil, apiError("InvalidAssociationID.NotFound", "association")
}

func (f *fakeEC2) DescribeSecurityGroups(_ context.Context, in *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeSecurityGroups"); err != nil {
		return nil, err
	}
	for _, id := range in.GroupIds {
		if _, ok := f.groups[id]; !ok {
			return nil, apiError("InvalidGroup.NotFound", "group "+id)
		}
	}
	out := &ec2.DescribeSecurityGroupsOutput{}
	for id, sg := range f.groups {
		if len(in.GroupIds) > 0 && !slices.Contains(in.GroupIds, id) {
			continue
		}
		ok := matches(in.Filters, func(name string) []string {
			if name == "group-name" {
				return []string{awssdk.ToString(sg.GroupName)}
			}
			return tagValues(sg.Tags, name)
		})
		if ok {
			cp := *sg
			cp.IpPermissions = slices.Clone(sg.IpPermissions)
			out.SecurityGroups = append(out.SecurityGroups, cp)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateSecurityGroup(_ context.Context, in *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateSecurityGroup"); err != nil {
		return nil, err
	}
	for _, sg := range f.groups {
		if awssdk.ToString(sg.GroupName) == awssdk.ToString(in.GroupName) &&
			awssdk.ToString(sg.VpcId) == awssdk.ToString(in.VpcId) {
			return nil, apiError("InvalidGroup.Duplicate", "group exists")
		}
	}
	id := f.id("sg")
	f.groups[id] = &types.SecurityGroup{
		GroupId:   awssdk.String(id),
		GroupName: in.GroupName,
		VpcId:     in.VpcId,
		Tags:      specTags(in.TagSpecifications),
	}
	return &ec2.CreateSecurityGroupOutput{GroupId: awssdk.String(id)}, nil
}

func (f *fakeEC2) DeleteSecurityGroup(_ context.Context, in *ec2.DeleteSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.DeleteSecurityGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteSecurityGroup"); err != nil {
		return nil, err
	}
	id := awssdk.ToString(in.GroupId)
	if _, ok := f.groups[id]; !ok {
		return nil, apiError("InvalidGroup.NotFound", "group "+id)
	}
	delete(f.groups, id)
	return &ec2.DeleteSecurityGroupOutput{}, nil
}

func samePermission(a, b types.IpPermission) bool {
	return awssdk.ToString(a.IpProtocol) == awssdk.ToString(b.IpProtocol) &&
		awssdk.ToInt32(a.FromPort) == awssdk.ToInt32(b.FromPort) &&
		awssdk.ToInt32(a.ToPort) == awssdk.ToInt32(b.ToPort) &&
		awssdk.ToString(a.IpRanges[0].CidrIp) == awssdk.ToString(b.IpRanges[0].CidrIp)
}

func (f *fakeEC2) AuthorizeSecurityGroupIngress(_ context.Context, in *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AuthorizeSecurityGroupIngress"); err != nil {
		return nil, err
	}
	sg, ok := f.groups[awssdk.ToString(in.GroupId)]
	if !ok {
		return nil, apiError("InvalidGroup.NotFound", "group")
	}
	for _, p := range in.IpPermissions {
		for _, have := range sg.IpPermissions {
			if samePermission(p, have) {
				return nil, apiError("InvalidPermission.Duplicate", "permission exists")
			}
		}
	}
	// one range per stored permission keeps revocation simple
	for _, p := range in.IpPermissions {
		for _, r := range p.IpRanges {
			cp := p
			cp.IpRanges = []types.IpRange{r}
			sg.IpPermissions = append(sg.IpPermissions, cp)
		}
	}
	return &ec2.AuthorizeSecurityGroupIngressOutput{}, nil
}

func (f *fakeEC2) RevokeSecurityGroupIngress(_ context.Context, in *ec2.RevokeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.RevokeSecurityGroupIngressOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("RevokeSecurityGroupIngress"); err != nil {
		return nil, err
	}
	sg, ok := f.groups[awssdk.ToString(in.GroupId)]
	if !ok {
		return nil, apiError("InvalidGroup.NotFound", "group")
	}
	for _, p := range in.IpPermissions {
		sg.IpPermissions = slices.DeleteFunc(sg.IpPermissions, func(have types.IpPermission) bool {
			return samePermission(p, have)
		})
	}
	return &ec2.RevokeSecurityGroupIngressOutput{}, nil
}

func (f *fakeEC2) DescribeVpcPeeringConnections(_ context.Context, in *ec2.DescribeVpcPeeringConnectionsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcPeeringConnectionsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DescribeVpcPeeringConnections"); err != nil {
		return nil, err
	}
	out := &ec2.DescribeVpcPeeringConnectionsOutput{}
	for _, p := range f.peerings {
		ok := matches(in.Filters, func(name string) []string {
			if name == "status-code" {
				return []string{string(p.Status.Code)}
			}
			return tagValues(p.Tags, name)
		})
		if ok {
			out.VpcPeeringConnections = append(out.VpcPeeringConnections, *p)
		}
	}
	return out, nil
}

func (f *fakeEC2) CreateVpcPeeringConnection(_ context.Context, in *ec2.CreateVpcPeeringConnectionInput, _ ...func(*ec2.Options)) (*ec2.CreateVpcPeeringConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateVpcPeeringConnection"); err != nil {
		return nil, err
	}
	id := f.id("pcx")
	f.peerings[id] = &types.VpcPeeringConnection{
		VpcPeeringConnectionId: awssdk.String(id),
		RequesterVpcInfo:       &types.VpcPeeringConnectionVpcInfo{VpcId: in.VpcId},
		AccepterVpcInfo:        &types.VpcPeeringConnectionVpcInfo{VpcId: in.PeerVpcId},
		Status:                 &types.VpcPeeringConnectionStateReason{Code: types.VpcPeeringConnectionStateReasonCodePendingAcceptance},
		Tags:                   specTags(in.TagSpecifications),
	}
	out := *f.peerings[id]
	return &ec2.CreateVpcPeeringConnectionOutput{VpcPeeringConnection: &out}, nil
}

func (f *fakeEC2) AcceptVpcPeeringConnection(_ context.Context, in *ec2.AcceptVpcPeeringConnectionInput, _ ...func(*ec2.Options)) (*ec2.AcceptVpcPeeringConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("AcceptVpcPeeringConnection"); err != nil {
		return nil, err
	}
	p, ok := f.peerings[awssdk.ToString(in.VpcPeeringConnectionId)]
	if !ok {
		return nil, apiError("InvalidVpcPeeringConnectionID.NotFound", "peering")
	}
	p.Status = &types.VpcPeeringConnectionStateReason{Code: types.VpcPeeringConnectionStateReasonCodeActive}
	return &ec2.AcceptVpcPeeringConnectionOutput{VpcPeeringConnection: p}, nil
}

func (f *fakeEC2) DeleteVpcPeeringConnection(_ context.Context, in *ec2.DeleteVpcPeeringConnectionInput, _ ...func(*ec2.Options)) (*ec2.DeleteVpcPeeringConnectionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("DeleteVpcPeeringConnection"); err != nil {
		return nil, err
	}
	p, ok := f.peerings[awssdk.ToString(in.VpcPeeringConnectionId)]
	if !ok || p.Status.Code == types.VpcPeeringConnectionStateReasonCodeDeleted {
		return nil, apiError("InvalidVpcPeeringConnectionID.NotFound", "peering")
	}
	p.Status = &types.VpcPeeringConnectionStateReason{Code: types.VpcPeeringConnectionStateReasonCodeDeleted}
	return &ec2.DeleteVpcPeeringConnectionOutput{Return: awssdk.Bool(true)}, nil
}

// fakeIAM is an in-memory IAM API.
type fakeIAM struct {
	mu       sync.Mutex
	roles    map[string]*iamtypes.Role
	policies map[string]map[string]string
	profiles map[string]*iamtypes.InstanceProfile
}

func newFakeIAM() *fakeIAM {
	return &fakeIAM{
		roles:    make(map[string]*iamtypes.Role),
		policies: make(map[string]map[string]string),
		profiles: make(map[string]*iamtypes.InstanceProfile),
	}
}

func noSuchEntity(what string) error {
	return &iamtypes.NoSuchEntityException{Message: awssdk.String(what + " not found")}
}

func (f *fakeIAM) policyNames(role string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var names []string
	for name := range f.policies[role] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	role, ok := f.roles[awssdk.ToString(in.RoleName)]
	if !ok {
		return nil, noSuchEntity("role")
	}
	return &iam.GetRoleOutput{Role: role}, nil
}

func (f *fakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.RoleName)
	if _, ok := f.roles[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: awssdk.String("role " + name)}
	}
	f.roles[name] = &iamtypes.Role{
		RoleName:                 in.RoleName,
		Arn:                      awssdk.String("arn:aws:iam::123456789012:role/" + name),
		AssumeRolePolicyDocument: in.AssumeRolePolicyDocument,
		Tags:                     in.Tags,
	}
	return &iam.CreateRoleOutput{Role: f.roles[name]}, nil
}

func (f *fakeIAM) DeleteRole(_ context.Context, in *iam.DeleteRoleInput, _ ...func(*iam.Options)) (*iam.DeleteRoleOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.RoleName)
	if _, ok := f.roles[name]; !ok {
		return nil, noSuchEntity("role")
	}
	if len(f.policies[name]) > 0 {
		return nil, &iamtypes.DeleteConflictException{Message: awssdk.String("role has policies")}
	}
	delete(f.roles, name)
	return &iam.DeleteRoleOutput{}, nil
}

func (f *fakeIAM) PutRolePolicy(_ context.Context, in *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.RoleName)
	if _, ok := f.roles[name]; !ok {
		return nil, noSuchEntity("role")
	}
	if f.policies[name] == nil {
		f.policies[name] = make(map[string]string)
	}
	f.policies[name][awssdk.ToString(in.PolicyName)] = awssdk.ToString(in.PolicyDocument)
	return &iam.PutRolePolicyOutput{}, nil
}

func (f *fakeIAM) ListRolePolicies(_ context.Context, in *iam.ListRolePoliciesInput, _ ...func(*iam.Options)) (*iam.ListRolePoliciesOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.RoleName)
	if _, ok := f.roles[name]; !ok {
		return nil, noSuchEntity("role")
	}
	out := &iam.ListRolePoliciesOutput{}
	for policy := range f.policies[name] {
		out.PolicyNames = append(out.PolicyNames, policy)
	}
	return out, nil
}

func (f *fakeIAM) DeleteRolePolicy(_ context.Context, in *iam.DeleteRolePolicyInput, _ ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.RoleName)
	if _, ok := f.policies[name][awssdk.ToString(in.PolicyName)]; !ok {
		return nil, noSuchEntity("policy")
	}
	delete(f.policies[name], awssdk.ToString(in.PolicyName))
	return &iam.DeleteRolePolicyOutput{}, nil
}

func (f *fakeIAM) GetInstanceProfile(_ context.Context, in *iam.GetInstanceProfileInput, _ ...func(*iam.Options)) (*iam.GetInstanceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[awssdk.ToString(in.InstanceProfileName)]
	if !ok {
		return nil, noSuchEntity("instance profile")
	}
	cp := *p
	cp.Roles = slices.Clone(p.Roles)
	return &iam.GetInstanceProfileOutput{InstanceProfile: &cp}, nil
}

func (f *fakeIAM) CreateInstanceProfile(_ context.Context, in *iam.CreateInstanceProfileInput, _ ...func(*iam.Options)) (*iam.CreateInstanceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.InstanceProfileName)
	if _, ok := f.profiles[name]; ok {
		return nil, &iamtypes.EntityAlreadyExistsException{Message: awssdk.String("instance profile " + name)}
	}
	f.profiles[name] = &iamtypes.InstanceProfile{
		InstanceProfileName: in.InstanceProfileName,
		InstanceProfileId:   awssdk.String("AIPA" + name),
		Arn:                 awssdk.String("arn:aws:iam::123456789012:instance-profile/" + name),
		Tags:                in.Tags,
	}
	cp := *f.profiles[name]
	return &iam.CreateInstanceProfileOutput{InstanceProfile: &cp}, nil
}

func (f *fakeIAM) AddRoleToInstanceProfile(_ context.Context, in *iam.AddRoleToInstanceProfileInput, _ ...func(*iam.Options)) (*iam.AddRoleToInstanceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[awssdk.ToString(in.InstanceProfileName)]
	if !ok {
		return nil, noSuchEntity("instance profile")
	}
	role, ok := f.roles[awssdk.ToString(in.RoleName)]
	if !ok {
		return nil, noSuchEntity("role")
	}
	p.Roles = append(p.Roles, *role)
	return &iam.AddRoleToInstanceProfileOutput{}, nil
}

func (f *fakeIAM) RemoveRoleFromInstanceProfile(_ context.Context, in *iam.RemoveRoleFromInstanceProfileInput, _ ...func(*iam.Options)) (*iam.RemoveRoleFromInstanceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[awssdk.ToString(in.InstanceProfileName)]
	if !ok {
		return nil, noSuchEntity("instance profile")
	}
	p.Roles = slices.DeleteFunc(p.Roles, func(r iamtypes.Role) bool {
		return awssdk.ToString(r.RoleName) == awssdk.ToString(in.RoleName)
	})
	return &iam.RemoveRoleFromInstanceProfileOutput{}, nil
}

func (f *fakeIAM) DeleteInstanceProfile(_ context.Context, in *iam.DeleteInstanceProfileInput, _ ...func(*iam.Options)) (*iam.DeleteInstanceProfileOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := awssdk.ToString(in.InstanceProfileName)
	p, ok := f.profiles[name]
	if !ok {
		return nil, noSuchEntity("instance profile")
	}
	if len(p.Roles) > 0 {
		return nil, &iamtypes.DeleteConflictException{Message: awssdk.String("instance profile has roles")}
	}
	delete(f.profiles, name)
	return &iam.DeleteInstanceProfileOutput{}, nil
}

// mockMetadata serves fixed instance metadata paths.
type mockMetadata struct {
	GetMetadataFunc func(path string) (string, error)
}

func (m *mockMetadata) GetMetadata(_ context.Context, in *imds.GetMetadataInput, _ ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	body, err := m.GetMetadataFunc(in.Path)
	if err != nil {
		return nil, err
	}
	return &imds.GetMetadataOutput{Content: io.NopCloser(bytes.NewBufferString(body))}, nil
}
