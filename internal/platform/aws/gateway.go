package aws

import (
	"context"
	"errors"
	"fmt"
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/labels"
	"github.com/imamik/wsctl/internal/util/naming"
	"github.com/imamik/wsctl/internal/util/retry"
)

// defaultRoute is the destination of egress routes.
const defaultRoute = "0.0.0.0/0"

// liveNATStates are the NAT gateway states that still hold the name. A
// failed NAT gateway is never reused, so create replaces it.
var liveNATStates = []string{
	string(types.NatGatewayStatePending),
	string(types.NatGatewayStateAvailable),
}

func toGateway(nat types.NatGateway) *cloud.Gateway {
	gw := &cloud.Gateway{
		ID:        awssdk.ToString(nat.NatGatewayId),
		Name:      tagValue(nat.Tags, tagName),
		NetworkID: awssdk.ToString(nat.VpcId),
		SubnetID:  awssdk.ToString(nat.SubnetId),
	}
	if len(nat.NatGatewayAddresses) > 0 {
		gw.Address = awssdk.ToString(nat.NatGatewayAddresses[0].PublicIp)
	}
	switch nat.State {
	case types.NatGatewayStateAvailable:
		gw.Status = cloud.GatewayActive
	case types.NatGatewayStateFailed, types.NatGatewayStateDeleting, types.NatGatewayStateDeleted:
		gw.Status = cloud.GatewayFailed
	default:
		gw.Status = cloud.GatewayPending
	}
	return gw
}

// internetGatewayName names the internet gateway created for a NAT gateway.
func internetGatewayName(gateway string) string {
	return gateway + "-igw"
}

// addressName names the Elastic IP of a gateway, falling back to the
// gateway name when the workspace label is missing.
func addressName(gateway string, lbls map[string]string) string {
	if ws := lbls[labels.KeyWorkspace]; ws != "" {
		return naming.GatewayAddress(ws)
	}
	return gateway + "-ip"
}

// FindGateway returns the live NAT gateway with the given Name tag, or nil.
func (c *Client) FindGateway(ctx context.Context, name string) (*cloud.Gateway, error) {
	out, err := c.ec2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		Filter: []types.Filter{nameFilter(name), filter("state", liveNATStates...)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe NAT gateway %s: %w", name, classify(err, cloud.KindGateway, name))
	}
	if len(out.NatGateways) == 0 {
		return nil, nil
	}
	return toGateway(out.NatGateways[0]), nil
}

// CreateGateway makes sure the VPC has an internet gateway, allocates an
// Elastic IP and creates the NAT gateway in the public subnet. The NAT
// gateway starts out pending.
func (c *Client) CreateGateway(ctx context.Context, spec cloud.GatewaySpec) (*cloud.Gateway, error) {
	if spec.Network == nil || spec.Subnet == nil {
		return nil, fmt.Errorf("gateway %s needs a network and a public subnet", spec.Name)
	}
	existing, err := c.FindGateway(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cloud.ConflictError(cloud.KindGateway, spec.Name)
	}

	if _, err := c.ensureInternetGateway(ctx, spec); err != nil {
		return nil, err
	}

	addr, err := c.ec2.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain:            types.DomainTypeVpc,
		TagSpecifications: tagSpec(types.ResourceTypeElasticIp, addressName(spec.Name, spec.Labels), spec.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to allocate address for %s: %w", spec.Name, classify(err, cloud.KindGateway, spec.Name))
	}

	out, err := c.ec2.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		SubnetId:          awssdk.String(spec.Subnet.ID),
		AllocationId:      addr.AllocationId,
		TagSpecifications: tagSpec(types.ResourceTypeNatgateway, spec.Name, spec.Labels),
	})
	if err != nil {
		createErr := fmt.Errorf("failed to create NAT gateway %s: %w", spec.Name, classify(err, cloud.KindGateway, spec.Name))
		if relErr := c.releaseAddress(ctx, awssdk.ToString(addr.AllocationId)); relErr != nil {
			return nil, errors.Join(createErr, relErr)
		}
		return nil, createErr
	}

	gw := toGateway(*out.NatGateway)
	gw.Name = spec.Name
	if gw.Address == "" {
		gw.Address = awssdk.ToString(addr.PublicIp)
	}
	if gw.NetworkID == "" {
		gw.NetworkID = spec.Network.ID
	}
	return gw, nil
}

// ensureInternetGateway returns the internet gateway attached to the VPC,
// creating and attaching one when there is none.
func (c *Client) ensureInternetGateway(ctx context.Context, spec cloud.GatewaySpec) (string, error) {
	id, err := c.attachedInternetGateway(ctx, spec.Network.ID)
	if err != nil || id != "" {
		return id, err
	}

	name := internetGatewayName(spec.Name)
	out, err := c.ec2.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{
		TagSpecifications: tagSpec(types.ResourceTypeInternetGateway, name, spec.Labels),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create internet gateway %s: %w", name, classify(err, cloud.KindGateway, name))
	}
	id = awssdk.ToString(out.InternetGateway.InternetGatewayId)

	_, err = c.ec2.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: awssdk.String(id),
		VpcId:             awssdk.String(spec.Network.ID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to attach internet gateway %s: %w", name, classify(err, cloud.KindGateway, name))
	}
	return id, nil
}

func (c *Client) attachedInternetGateway(ctx context.Context, vpcID string) (string, error) {
	out, err := c.ec2.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: []types.Filter{filter("attachment.vpc-id", vpcID)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to describe internet gateways of VPC %s: %w", vpcID,
			classify(err, cloud.KindGateway, vpcID))
	}
	if len(out.InternetGateways) == 0 {
		return "", nil
	}
	return awssdk.ToString(out.InternetGateways[0].InternetGatewayId), nil
}

// RefreshGateway re-reads the NAT gateway state.
func (c *Client) RefreshGateway(ctx context.Context, gateway *cloud.Gateway) (*cloud.Gateway, error) {
	nat, err := c.describeNAT(ctx, gateway)
	if err != nil {
		return nil, err
	}
	gw := toGateway(*nat)
	if gw.Name == "" {
		gw.Name = gateway.Name
	}
	return gw, nil
}

func (c *Client) describeNAT(ctx context.Context, gateway *cloud.Gateway) (*types.NatGateway, error) {
	out, err := c.ec2.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{
		NatGatewayIds: []string{gateway.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe NAT gateway %s: %w", gateway.ID, classify(err, cloud.KindGateway, gateway.Name))
	}
	if len(out.NatGateways) == 0 {
		return nil, cloud.NotFoundError(cloud.KindGateway, gateway.Name)
	}
	return &out.NatGateways[0], nil
}

// DeleteGateway deletes the NAT gateway, waits for it to be gone, then
// releases its Elastic IP and removes the internet gateway created for it.
func (c *Client) DeleteGateway(ctx context.Context, gateway *cloud.Gateway) error {
	nat, err := c.describeNAT(ctx, gateway)
	if err != nil {
		return err
	}
	if nat.State == types.NatGatewayStateDeleted {
		return cloud.NotFoundError(cloud.KindGateway, gateway.Name)
	}

	_, err = c.ec2.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{NatGatewayId: nat.NatGatewayId})
	if err != nil {
		return fmt.Errorf("failed to delete NAT gateway %s: %w", gateway.ID, classify(err, cloud.KindGateway, gateway.Name))
	}

	done, err := retry.Poll(ctx, c.timeouts.DrainAttempts, c.timeouts.DrainInterval, func(int) (bool, error) {
		current, err := c.describeNAT(ctx, gateway)
		if err != nil {
			if cloud.IsNotFound(err) {
				return true, nil
			}
			return false, err
		}
		return current.State == types.NatGatewayStateDeleted, nil
	})
	if err != nil {
		return fmt.Errorf("failed waiting for NAT gateway %s deletion: %w", gateway.ID, err)
	}
	if !done {
		return fmt.Errorf("NAT gateway %s still deleting", gateway.ID)
	}

	for _, a := range nat.NatGatewayAddresses {
		if err := c.releaseAddress(ctx, awssdk.ToString(a.AllocationId)); err != nil {
			return err
		}
	}
	return c.deleteInternetGateway(ctx, awssdk.ToString(nat.VpcId), internetGatewayName(gateway.Name))
}

func (c *Client) releaseAddress(ctx context.Context, allocationID string) error {
	if allocationID == "" {
		return nil
	}
	_, err := c.ec2.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{AllocationId: awssdk.String(allocationID)})
	if err != nil && !cloud.IsNotFound(classify(err, cloud.KindGateway, allocationID)) {
		return fmt.Errorf("failed to release address %s: %w", allocationID, err)
	}
	return nil
}

// deleteInternetGateway removes the internet gateway with the given Name
// tag. Internet gateways that were not created for the workspace are left
// alone.
func (c *Client) deleteInternetGateway(ctx context.Context, vpcID, name string) error {
	out, err := c.ec2.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		Filters: []types.Filter{nameFilter(name)},
	})
	if err != nil {
		return fmt.Errorf("failed to describe internet gateway %s: %w", name, classify(err, cloud.KindGateway, name))
	}

	for _, igw := range out.InternetGateways {
		for _, att := range igw.Attachments {
			_, err := c.ec2.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
				InternetGatewayId: igw.InternetGatewayId,
				VpcId:             att.VpcId,
			})
			if err != nil && !cloud.IsNotFound(classify(err, cloud.KindGateway, name)) {
				return fmt.Errorf("failed to detach internet gateway %s from %s: %w", name, vpcID, err)
			}
		}
		_, err := c.ec2.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{InternetGatewayId: igw.InternetGatewayId})
		if err != nil && !cloud.IsNotFound(classify(err, cloud.KindGateway, name)) {
			return fmt.Errorf("failed to delete internet gateway %s: %w", name, classify(err, cloud.KindGateway, name))
		}
	}
	return nil
}

func toEgressRule(rt types.RouteTable) *cloud.EgressRule {
	rule := &cloud.EgressRule{
		ID:        awssdk.ToString(rt.RouteTableId),
		Name:      tagValue(rt.Tags, tagName),
		GatewayID: tagValue(rt.Tags, tagGateway),
	}
	for _, a := range rt.Associations {
		if !awssdk.ToBool(a.Main) && a.SubnetId != nil {
			rule.SubnetID = awssdk.ToString(a.SubnetId)
			break
		}
	}
	return rule
}

// ListEgressRules returns the route tables tagged with the gateway.
func (c *Client) ListEgressRules(ctx context.Context, gateway *cloud.Gateway) ([]*cloud.EgressRule, error) {
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []types.Filter{filter("tag:"+tagGateway, gateway.ID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe route tables of %s: %w", gateway.ID,
			classify(err, cloud.KindEgressRule, gateway.Name))
	}

	rules := make([]*cloud.EgressRule, 0, len(out.RouteTables))
	for _, rt := range out.RouteTables {
		rules = append(rules, toEgressRule(rt))
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules, nil
}

// CreateEgressRule creates a route table for the subnet with a default
// route through the NAT gateway. The subnet holding the NAT gateway routes
// through the internet gateway instead.
func (c *Client) CreateEgressRule(ctx context.Context, gateway *cloud.Gateway, spec cloud.EgressRuleSpec) (*cloud.EgressRule, error) {
	if spec.Subnet == nil {
		return nil, fmt.Errorf("egress rule %s has no subnet", spec.Name)
	}
	vpcID := spec.Subnet.NetworkID

	existing, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []types.Filter{filter("vpc-id", vpcID), nameFilter(spec.Name)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe route table %s: %w", spec.Name, classify(err, cloud.KindEgressRule, spec.Name))
	}
	if len(existing.RouteTables) > 0 {
		return nil, cloud.ConflictError(cloud.KindEgressRule, spec.Name)
	}

	route := &ec2.CreateRouteInput{DestinationCidrBlock: awssdk.String(defaultRoute)}
	if spec.Subnet.ID == gateway.SubnetID {
		igw, err := c.attachedInternetGateway(ctx, vpcID)
		if err != nil {
			return nil, err
		}
		if igw == "" {
			return nil, fmt.Errorf("VPC %s has no internet gateway for egress rule %s", vpcID, spec.Name)
		}
		route.GatewayId = awssdk.String(igw)
	} else {
		route.NatGatewayId = awssdk.String(gateway.ID)
	}

	tags := map[string]string{tagGateway: gateway.ID}
	out, err := c.ec2.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId:             awssdk.String(vpcID),
		TagSpecifications: tagSpec(types.ResourceTypeRouteTable, spec.Name, tags),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create route table %s: %w", spec.Name, classify(err, cloud.KindEgressRule, spec.Name))
	}
	rtID := out.RouteTable.RouteTableId

	route.RouteTableId = rtID
	if _, err := c.ec2.CreateRoute(ctx, route); err != nil {
		return nil, fmt.Errorf("failed to add default route to %s: %w", spec.Name, classify(err, cloud.KindEgressRule, spec.Name))
	}
	_, err = c.ec2.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: rtID,
		SubnetId:     awssdk.String(spec.Subnet.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to associate route table %s with %s: %w", spec.Name, spec.Subnet.ID,
			classify(err, cloud.KindEgressRule, spec.Name))
	}

	return &cloud.EgressRule{
		ID:        awssdk.ToString(rtID),
		Name:      spec.Name,
		GatewayID: gateway.ID,
		SubnetID:  spec.Subnet.ID,
	}, nil
}

// DeleteEgressRule disassociates the route table from its subnet and
// deletes it.
func (c *Client) DeleteEgressRule(ctx context.Context, rule *cloud.EgressRule) error {
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{RouteTableIds: []string{rule.ID}})
	if err != nil {
		return fmt.Errorf("failed to describe route table %s: %w", rule.ID, classify(err, cloud.KindEgressRule, rule.Name))
	}
	if len(out.RouteTables) == 0 {
		return cloud.NotFoundError(cloud.KindEgressRule, rule.Name)
	}

	for _, a := range out.RouteTables[0].Associations {
		if awssdk.ToBool(a.Main) {
			continue
		}
		_, err := c.ec2.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{AssociationId: a.RouteTableAssociationId})
		if err != nil && !cloud.IsNotFound(classify(err, cloud.KindEgressRule, rule.Name)) {
			return fmt.Errorf("failed to disassociate route table %s: %w", rule.ID, classify(err, cloud.KindEgressRule, rule.Name))
		}
	}

	_, err = c.ec2.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: awssdk.String(rule.ID)})
	if err != nil {
		return fmt.Errorf("failed to delete route table %s: %w", rule.ID, classify(err, cloud.KindEgressRule, rule.Name))
	}
	return nil
}
