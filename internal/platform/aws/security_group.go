package aws

import (
	"context"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/imamik/wsctl/internal/cloud"
)

// allProtocols is the EC2 protocol value matching all traffic.
const allProtocols = "-1"

func toSecurityGroup(sg types.SecurityGroup) *cloud.SecurityGroup {
	return &cloud.SecurityGroup{
		ID:        awssdk.ToString(sg.GroupId),
		Name:      awssdk.ToString(sg.GroupName),
		NetworkID: awssdk.ToString(sg.VpcId),
	}
}

// FindSecurityGroup returns the security group with the given group name, or nil.
func (c *Client) FindSecurityGroup(ctx context.Context, name string) (*cloud.SecurityGroup, error) {
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []types.Filter{filter("group-name", name)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe security group %s: %w", name, classify(err, cloud.KindSecurityGroup, name))
	}
	if len(out.SecurityGroups) == 0 {
		return nil, nil
	}
	return toSecurityGroup(out.SecurityGroups[0]), nil
}

// CreateSecurityGroup creates an empty security group in the network.
func (c *Client) CreateSecurityGroup(ctx context.Context, spec cloud.SecurityGroupSpec) (*cloud.SecurityGroup, error) {
	if spec.Network == nil {
		return nil, fmt.Errorf("security group %s needs a network", spec.Name)
	}
	out, err := c.ec2.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:         awssdk.String(spec.Name),
		Description:       awssdk.String("wsctl workspace security group"),
		VpcId:             awssdk.String(spec.Network.ID),
		TagSpecifications: tagSpec(types.ResourceTypeSecurityGroup, spec.Name, spec.Labels),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create security group %s: %w", spec.Name, classify(err, cloud.KindSecurityGroup, spec.Name))
	}
	return &cloud.SecurityGroup{
		ID:        awssdk.ToString(out.GroupId),
		Name:      spec.Name,
		NetworkID: spec.Network.ID,
	}, nil
}

// DeleteSecurityGroup deletes the security group.
func (c *Client) DeleteSecurityGroup(ctx context.Context, group *cloud.SecurityGroup) error {
	_, err := c.ec2.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: awssdk.String(group.ID)})
	if err != nil {
		return fmt.Errorf("failed to delete security group %s: %w", group.ID, classify(err, cloud.KindSecurityGroup, group.Name))
	}
	return nil
}

// ListRules returns the ingress rules, one per source range.
func (c *Client) ListRules(ctx context.Context, group *cloud.SecurityGroup) ([]cloud.Rule, error) {
	out, err := c.ec2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{GroupIds: []string{group.ID}})
	if err != nil {
		return nil, fmt.Errorf("failed to describe security group %s: %w", group.ID, classify(err, cloud.KindSecurityGroup, group.Name))
	}
	if len(out.SecurityGroups) == 0 {
		return nil, cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}

	var rules []cloud.Rule
	for _, perm := range out.SecurityGroups[0].IpPermissions {
		rules = append(rules, fromPermission(perm)...)
	}
	return rules, nil
}

// AddRules authorizes the rules that are not present yet.
func (c *Client) AddRules(ctx context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	existing, err := c.ListRules(ctx, group)
	if err != nil {
		return err
	}
	seen := make(map[cloud.Rule]bool, len(existing))
	for _, r := range existing {
		seen[r] = true
	}

	var perms []types.IpPermission
	for _, r := range rules {
		if seen[r] {
			continue
		}
		seen[r] = true
		perms = append(perms, toPermission(r))
	}
	if len(perms) == 0 {
		return nil
	}

	_, err = c.ec2.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       awssdk.String(group.ID),
		IpPermissions: perms,
	})
	if err = ignoreCode(err, "InvalidPermission.Duplicate"); err != nil {
		return fmt.Errorf("failed to authorize ingress on %s: %w", group.ID, classify(err, cloud.KindSecurityGroup, group.Name))
	}
	return nil
}

// RemoveRules revokes the given rules; unknown ones are ignored.
func (c *Client) RemoveRules(ctx context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	existing, err := c.ListRules(ctx, group)
	if err != nil {
		return err
	}
	present := make(map[cloud.Rule]bool, len(existing))
	for _, r := range existing {
		present[r] = true
	}

	var perms []types.IpPermission
	for _, r := range rules {
		if present[r] {
			delete(present, r)
			perms = append(perms, toPermission(r))
		}
	}
	if len(perms) == 0 {
		return nil
	}

	_, err = c.ec2.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
		GroupId:       awssdk.String(group.ID),
		IpPermissions: perms,
	})
	if err = ignoreCode(err, "InvalidPermission.NotFound"); err != nil {
		return fmt.Errorf("failed to revoke ingress on %s: %w", group.ID, classify(err, cloud.KindSecurityGroup, group.Name))
	}
	return nil
}

// toPermission converts a rule. Port-less protocols use -1 for both ports.
func toPermission(r cloud.Rule) types.IpPermission {
	proto := strings.ToLower(r.Protocol)
	from, to := int32(r.FromPort), int32(r.ToPort)
	if proto == "icmp" && from == 0 && to == 0 {
		from, to = -1, -1
	}

	perm := types.IpPermission{
		IpProtocol: awssdk.String(proto),
		IpRanges:   []types.IpRange{{CidrIp: awssdk.String(r.CIDR)}},
	}
	if proto != allProtocols {
		perm.FromPort = awssdk.Int32(from)
		perm.ToPort = awssdk.Int32(to)
	}
	return perm
}

func fromPermission(perm types.IpPermission) []cloud.Rule {
	from := int(awssdk.ToInt32(perm.FromPort))
	to := int(awssdk.ToInt32(perm.ToPort))
	if from < 0 {
		from = 0
	}
	if to < 0 {
		to = 0
	}

	rules := make([]cloud.Rule, 0, len(perm.IpRanges))
	for _, r := range perm.IpRanges {
		rules = append(rules, cloud.Rule{
			Protocol: awssdk.ToString(perm.IpProtocol),
			FromPort: from,
			ToPort:   to,
			CIDR:     awssdk.ToString(r.CidrIp),
		})
	}
	return rules
}
