package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/wsctl/internal/cloud"
)

// livePeeringStates are the peering states that still hold the name.
var livePeeringStates = []string{
	string(types.VpcPeeringConnectionStateReasonCodeInitiatingRequest),
	string(types.VpcPeeringConnectionStateReasonCodePendingAcceptance),
	string(types.VpcPeeringConnectionStateReasonCodeProvisioning),
	string(types.VpcPeeringConnectionStateReasonCodeActive),
}

func toPeering(p types.VpcPeeringConnection) *cloud.Peering {
	out := &cloud.Peering{
		ID:   awssdk.ToString(p.VpcPeeringConnectionId),
		Name: tagValue(p.Tags, tagName),
	}
	if p.RequesterVpcInfo != nil {
		out.RequesterNetworkID = awssdk.ToString(p.RequesterVpcInfo.VpcId)
	}
	if p.AccepterVpcInfo != nil {
		out.AccepterNetworkID = awssdk.ToString(p.AccepterVpcInfo.VpcId)
	}
	return out
}

// FindPeering returns the live peering connection with the given Name tag, or nil.
func (c *Client) FindPeering(ctx context.Context, name string) (*cloud.Peering, error) {
	out, err := c.ec2.DescribeVpcPeeringConnections(ctx, &ec2.DescribeVpcPeeringConnectionsInput{
		Filters: []types.Filter{nameFilter(name), filter("status-code", livePeeringStates...)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe peering %s: %w", name, classify(err, cloud.KindPeering, name))
	}
	if len(out.VpcPeeringConnections) == 0 {
		return nil, nil
	}
	return toPeering(out.VpcPeeringConnections[0]), nil
}

// CreatePeering requests a peering connection from the requester to the
// accepter network, accepts it and routes each network's range to the other.
func (c *Client) CreatePeering(ctx context.Context, spec cloud.PeeringSpec) (*cloud.Peering, error) {
	if spec.Requester == nil || spec.Accepter == nil {
		return nil, fmt.Errorf("peering %s needs both networks", spec.Name)
	}
	existing, err := c.FindPeering(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cloud.ConflictError(cloud.KindPeering, spec.Name)
	}

	out, err := c.ec2.CreateVpcPeeringConnection(ctx, &ec2.CreateVpcPeeringConnectionInput{
		VpcId:             awssdk.String(spec.Requester.ID),
		PeerVpcId:         awssdk.String(spec.Accepter.ID),
		TagSpecifications: tagSpec(types.ResourceTypeVpcPeeringConnection, spec.Name, spec.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create peering %s: %w", spec.Name, classify(err, cloud.KindPeering, spec.Name))
	}
	pcx := out.VpcPeeringConnection

	if pcx.Status == nil || pcx.Status.Code != types.VpcPeeringConnectionStateReasonCodeActive {
		_, err = c.ec2.AcceptVpcPeeringConnection(ctx, &ec2.AcceptVpcPeeringConnectionInput{
			VpcPeeringConnectionId: pcx.VpcPeeringConnectionId,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to accept peering %s: %w", spec.Name, classify(err, cloud.KindPeering, spec.Name))
		}
	}

	id := awssdk.ToString(pcx.VpcPeeringConnectionId)
	if err := c.addPeeringRoutes(ctx, spec.Requester.ID, spec.Accepter.CIDR, id); err != nil {
		return nil, err
	}
	if err := c.addPeeringRoutes(ctx, spec.Accepter.ID, spec.Requester.CIDR, id); err != nil {
		return nil, err
	}

	return &cloud.Peering{
		ID:                 id,
		Name:               spec.Name,
		RequesterNetworkID: spec.Requester.ID,
		AccepterNetworkID:  spec.Accepter.ID,
	}, nil
}

// addPeeringRoutes routes destination through the peering connection in
// every route table of the VPC.
func (c *Client) addPeeringRoutes(ctx context.Context, vpcID, destination, peeringID string) error {
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []types.Filter{filter("vpc-id", vpcID)},
	})
	if err != nil {
		return fmt.Errorf("failed to describe route tables of VPC %s: %w", vpcID, classify(err, cloud.KindPeering, peeringID))
	}

	for _, rt := range out.RouteTables {
		_, err := c.ec2.CreateRoute(ctx, &ec2.CreateRouteInput{
			RouteTableId:           rt.RouteTableId,
			DestinationCidrBlock:   awssdk.String(destination),
			VpcPeeringConnectionId: awssdk.String(peeringID),
		})
		if err = ignoreCode(err, "RouteAlreadyExists"); err != nil {
			return fmt.Errorf("failed to add peering route to %s: %w", awssdk.ToString(rt.RouteTableId),
				classify(err, cloud.KindPeering, peeringID))
		}
	}
	return nil
}

// DeletePeering removes every route through the connection, then the
// connection itself.
func (c *Client) DeletePeering(ctx context.Context, peering *cloud.Peering) error {
	out, err := c.ec2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []types.Filter{filter("route.vpc-peering-connection-id", peering.ID)},
	})
	if err != nil {
		return fmt.Errorf("failed to describe routes of peering %s: %w", peering.ID, classify(err, cloud.KindPeering, peering.Name))
	}

	for _, rt := range out.RouteTables {
		for _, route := range rt.Routes {
			if awssdk.ToString(route.VpcPeeringConnectionId) != peering.ID {
				continue
			}
			_, err := c.ec2.DeleteRoute(ctx, &ec2.DeleteRouteInput{
				RouteTableId:         rt.RouteTableId,
				DestinationCidrBlock: route.DestinationCidrBlock,
			})
			if err != nil && !cloud.IsNotFound(classify(err, cloud.KindPeering, peering.Name)) {
				return fmt.Errorf("failed to delete peering route from %s: %w", awssdk.ToString(rt.RouteTableId), err)
			}
		}
	}

	_, err = c.ec2.DeleteVpcPeeringConnection(ctx, &ec2.DeleteVpcPeeringConnectionInput{
		VpcPeeringConnectionId: awssdk.String(peering.ID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete peering %s: %w", peering.ID, classify(err, cloud.KindPeering, peering.Name))
	}
	return nil
}
