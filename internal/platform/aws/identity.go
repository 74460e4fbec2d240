package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/imamik/wsctl/internal/cloud"
	"github.com/imamik/wsctl/internal/util/labels"
)

func toProfile(p *iamtypes.InstanceProfile) *cloud.IdentityProfile {
	role := iamTagValue(p.Tags, labels.KeyRole)
	if role == "" {
		for _, r := range p.Roles {
			if v := iamTagValue(r.Tags, labels.KeyRole); v != "" {
				role = v
				break
			}
		}
	}
	return &cloud.IdentityProfile{
		ID:   awssdk.ToString(p.Arn),
		Name: awssdk.ToString(p.InstanceProfileName),
		Role: cloud.IdentityRole(role),
	}
}

func (c *Client) getInstanceProfile(ctx context.Context, name string) (*iamtypes.InstanceProfile, error) {
	out, err := c.iam.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{InstanceProfileName: awssdk.String(name)})
	if err != nil {
		return nil, fmt.Errorf("failed to get instance profile %s: %w", name, classify(err, cloud.KindIdentityProfile, name))
	}
	return out.InstanceProfile, nil
}

// FindIdentityProfile returns the instance profile with the given name, or nil.
func (c *Client) FindIdentityProfile(ctx context.Context, name string) (*cloud.IdentityProfile, error) {
	p, err := c.getInstanceProfile(ctx, name)
	if err != nil {
		if cloud.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toProfile(p), nil
}

// CreateIdentityProfile creates a role with the role's inline policies and
// an instance profile of the same name holding it. A role left behind by an
// interrupted create is reused.
func (c *Client) CreateIdentityProfile(ctx context.Context, spec cloud.IdentityProfileSpec) (*cloud.IdentityProfile, error) {
	existing, err := c.FindIdentityProfile(ctx, spec.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, cloud.ConflictError(cloud.KindIdentityProfile, spec.Name)
	}

	tags := iamTags(labels.NewLabelBuilder(spec.Labels[labels.KeyWorkspace]).
		Merge(spec.Labels).
		WithRole(string(spec.Role)).
		Build())

	_, err = c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 awssdk.String(spec.Name),
		AssumeRolePolicyDocument: awssdk.String(assumeRolePolicy),
		Description:              awssdk.String(fmt.Sprintf("wsctl %s role", spec.Role)),
		Tags:                     tags,
	})
	if err = ignoreCode(err, "EntityAlreadyExists"); err != nil {
		return nil, fmt.Errorf("failed to create role %s: %w", spec.Name, classify(err, cloud.KindIdentityProfile, spec.Name))
	}

	for policyName, doc := range rolePolicies(spec) {
		_, err := c.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
			RoleName:       awssdk.String(spec.Name),
			PolicyName:     awssdk.String(policyName),
			PolicyDocument: awssdk.String(doc),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to put policy %s on role %s: %w", policyName, spec.Name,
				classify(err, cloud.KindIdentityProfile, spec.Name))
		}
	}

	out, err := c.iam.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: awssdk.String(spec.Name),
		Tags:                tags,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create instance profile %s: %w", spec.Name,
			classify(err, cloud.KindIdentityProfile, spec.Name))
	}

	_, err = c.iam.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: awssdk.String(spec.Name),
		RoleName:            awssdk.String(spec.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add role to instance profile %s: %w", spec.Name,
			classify(err, cloud.KindIdentityProfile, spec.Name))
	}

	p := toProfile(out.InstanceProfile)
	p.Role = spec.Role
	return p, nil
}

// rolePolicies returns the inline policies for a role. The head node
// manages instances; every role gets the workspace bucket when there is one.
func rolePolicies(spec cloud.IdentityProfileSpec) map[string]string {
	policies := make(map[string]string)
	if spec.Role == cloud.RoleHead {
		policies[computePolicyName] = computePolicy
	}
	if spec.BucketName != "" {
		policies[storagePolicyName] = storagePolicy(spec.BucketName)
	}
	return policies
}

// DeleteIdentityProfile detaches the role, deletes the instance profile,
// then the role and its inline policies.
func (c *Client) DeleteIdentityProfile(ctx context.Context, profile *cloud.IdentityProfile) error {
	p, err := c.getInstanceProfile(ctx, profile.Name)
	if err != nil {
		return err
	}

	for _, r := range p.Roles {
		_, err := c.iam.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
			InstanceProfileName: p.InstanceProfileName,
			RoleName:            r.RoleName,
		})
		if err != nil && !cloud.IsNotFound(classify(err, cloud.KindIdentityProfile, profile.Name)) {
			return fmt.Errorf("failed to remove role %s from instance profile %s: %w",
				awssdk.ToString(r.RoleName), profile.Name, err)
		}
	}

	_, err = c.iam.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{InstanceProfileName: p.InstanceProfileName})
	if err != nil {
		return fmt.Errorf("failed to delete instance profile %s: %w", profile.Name,
			classify(err, cloud.KindIdentityProfile, profile.Name))
	}
	return c.deleteRole(ctx, profile.Name)
}

func (c *Client) deleteRole(ctx context.Context, name string) error {
	policies, err := c.iam.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: awssdk.String(name)})
	if err != nil {
		err = classify(err, cloud.KindIdentityProfile, name)
		if cloud.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to list policies of role %s: %w", name, err)
	}

	for _, policy := range policies.PolicyNames {
		_, err := c.iam.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   awssdk.String(name),
			PolicyName: awssdk.String(policy),
		})
		if err != nil && !cloud.IsNotFound(classify(err, cloud.KindIdentityProfile, name)) {
			return fmt.Errorf("failed to delete policy %s of role %s: %w", policy, name, err)
		}
	}

	_, err = c.iam.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: awssdk.String(name)})
	if err != nil && !cloud.IsNotFound(classify(err, cloud.KindIdentityProfile, name)) {
		return fmt.Errorf("failed to delete role %s: %w", name, err)
	}
	return nil
}
