package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/wsctl/internal/cloud"
)

func toNetwork(v types.Vpc) *cloud.Network {
	return &cloud.Network{
		ID:   awssdk.ToString(v.VpcId),
		Name: tagValue(v.Tags, tagName),
		CIDR: awssdk.ToString(v.CidrBlock),
	}
}

// FindNetwork returns the VPC with the given Name tag, or nil.
func (c *Client) FindNetwork(ctx context.Context, name string) (*cloud.Network, error) {
	out, err := c.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []types.Filter{nameFilter(name)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe VPC %s: %w", name, classify(err, cloud.KindNetwork, name))
	}
	if len(out.Vpcs) == 0 {
		return nil, nil
	}
	return toNetwork(out.Vpcs[0]), nil
}

// CreateNetwork creates a VPC and enables DNS hostnames on it.
func (c *Client) CreateNetwork(ctx context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	existing, err := c.FindNetwork(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cloud.ConflictError(cloud.KindNetwork, spec.Name)
	}

	out, err := c.ec2.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock:         awssdk.String(spec.CIDR),
		TagSpecifications: tagSpec(types.ResourceTypeVpc, spec.Name, spec.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create VPC %s: %w", spec.Name, classify(err, cloud.KindNetwork, spec.Name))
	}

	_, err = c.ec2.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
		VpcId:              out.Vpc.VpcId,
		EnableDnsHostnames: &types.AttributeBooleanValue{Value: awssdk.Bool(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enable DNS hostnames on VPC %s: %w", spec.Name,
			classify(err, cloud.KindNetwork, spec.Name))
	}

	n := toNetwork(*out.Vpc)
	n.Name = spec.Name
	return n, nil
}

// DeleteNetwork deletes the VPC.
func (c *Client) DeleteNetwork(ctx context.Context, network *cloud.Network) error {
	_, err := c.ec2.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: awssdk.String(network.ID)})
	if err != nil {
		return fmt.Errorf("failed to delete VPC %s: %w", network.ID, classify(err, cloud.KindNetwork, network.Name))
	}
	return nil
}

// WorkingNetwork returns the configured working VPC, or the VPC of the
// instance the caller runs on when none is configured.
func (c *Client) WorkingNetwork(ctx context.Context) (*cloud.Network, error) {
	if c.workingVPCID == "" {
		id, err := c.discoverVPC(ctx)
		if err != nil {
			return nil, err
		}
		c.workingVPCID = id
	}

	out, err := c.ec2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{VpcIds: []string{c.workingVPCID}})
	if err != nil {
		err = classify(err, cloud.KindNetwork, c.workingVPCID)
		if cloud.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to describe working VPC %s: %w", c.workingVPCID, err)
	}
	if len(out.Vpcs) == 0 {
		return nil, nil
	}
	n := toNetwork(out.Vpcs[0])
	n.Working = true
	return n, nil
}

// discoverVPC reads the VPC ID of the primary interface from instance
// metadata.
func (c *Client) discoverVPC(ctx context.Context) (string, error) {
	if c.metadata == nil {
		return "", errors.New("no working VPC configured and instance metadata is not available")
	}
	mac, err := c.readMetadata(ctx, "mac")
	if err != nil {
		return "", err
	}
	return c.readMetadata(ctx, "network/interfaces/macs/"+mac+"/vpc-id")
}

func (c *Client) readMetadata(ctx context.Context, path string) (string, error) {
	out, err := c.metadata.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		return "", fmt.Errorf("failed to read instance metadata %s: %w", path, err)
	}
	defer out.Content.Close()

	body, err := io.ReadAll(out.Content)
	if err != nil {
		return "", fmt.Errorf("failed to read instance metadata %s: %w", path, err)
	}
	return strings.TrimSpace(string(body)), nil
}

func toSubnet(s types.Subnet) *cloud.Subnet {
	id := awssdk.ToString(s.SubnetId)
	name := tagValue(s.Tags, tagName)
	if name == "" {
		name = id
	}
	return &cloud.Subnet{
		ID:        id,
		Name:      name,
		NetworkID: awssdk.ToString(s.VpcId),
		CIDR:      awssdk.ToString(s.CidrBlock),
		Zone:      awssdk.ToString(s.AvailabilityZone),
	}
}

// ListSubnets returns every subnet of the VPC, sorted by CIDR. Untagged
// subnets are reported under their ID.
func (c *Client) ListSubnets(ctx context.Context, network *cloud.Network) ([]*cloud.Subnet, error) {
	out, err := c.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{filter("vpc-id", network.ID)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe subnets of VPC %s: %w", network.ID,
			classify(err, cloud.KindSubnet, network.Name))
	}

	subnets := make([]*cloud.Subnet, 0, len(out.Subnets))
	for _, s := range out.Subnets {
		subnets = append(subnets, toSubnet(s))
	}
	sort.Slice(subnets, func(i, j int) bool { return subnets[i].CIDR < subnets[j].CIDR })
	return subnets, nil
}

// CreateSubnet creates a subnet. Public subnets map public IPs on launch.
func (c *Client) CreateSubnet(ctx context.Context, network *cloud.Network, spec cloud.SubnetSpec) (*cloud.Subnet, error) {
	out, err := c.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []types.Filter{filter("vpc-id", network.ID), nameFilter(spec.Name)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe subnet %s: %w", spec.Name, classify(err, cloud.KindSubnet, spec.Name))
	}
	if len(out.Subnets) > 0 {
		return nil, cloud.ConflictError(cloud.KindSubnet, spec.Name)
	}

	created, err := c.ec2.CreateSubnet(ctx, &ec2.CreateSubnetInput{
		VpcId:             awssdk.String(network.ID),
		CidrBlock:         awssdk.String(spec.CIDR),
		TagSpecifications: tagSpec(types.ResourceTypeSubnet, spec.Name, spec.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create subnet %s: %w", spec.Name, classify(err, cloud.KindSubnet, spec.Name))
	}

	if spec.Public {
		_, err = c.ec2.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            created.Subnet.SubnetId,
			MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: awssdk.Bool(true)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to enable public IPs on subnet %s: %w", spec.Name,
				classify(err, cloud.KindSubnet, spec.Name))
		}
	}

	s := toSubnet(*created.Subnet)
	s.Name = spec.Name
	return s, nil
}

// DeleteSubnet deletes the subnet.
func (c *Client) DeleteSubnet(ctx context.Context, subnet *cloud.Subnet) error {
	_, err := c.ec2.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: awssdk.String(subnet.ID)})
	if err != nil {
		return fmt.Errorf("failed to delete subnet %s: %w", subnet.ID, classify(err, cloud.KindSubnet, subnet.Name))
	}
	return nil
}
