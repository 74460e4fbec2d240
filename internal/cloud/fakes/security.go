package fakes

import (
	"context"
	"slices"

	"github.com/imamik/wsctl/internal/cloud"
)

func (b *Backend) FindSecurityGroup(_ context.Context, name string) (*cloud.SecurityGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpFind, cloud.KindSecurityGroup, name); err != nil {
		return nil, err
	}
	if g, ok := b.groups[name]; ok {
		return copyOf(g.sg), nil
	}
	return nil, nil
}

func (b *Backend) CreateSecurityGroup(_ context.Context, spec cloud.SecurityGroupSpec) (*cloud.SecurityGroup, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpCreate, cloud.KindSecurityGroup, spec.Name); err != nil {
		return nil, err
	}
	if _, ok := b.groups[spec.Name]; ok {
		return nil, cloud.ConflictError(cloud.KindSecurityGroup, spec.Name)
	}
	sg := &cloud.SecurityGroup{ID: b.id("sg"), Name: spec.Name, NetworkID: spec.Network.ID}
	b.groups[spec.Name] = &groupState{sg: sg}
	return copyOf(sg), nil
}

func (b *Backend) DeleteSecurityGroup(_ context.Context, group *cloud.SecurityGroup) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpDelete, cloud.KindSecurityGroup, group.Name); err != nil {
		return err
	}
	if _, ok := b.groups[group.Name]; !ok {
		return cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}
	delete(b.groups, group.Name)
	return nil
}

func (b *Backend) ListRules(_ context.Context, group *cloud.SecurityGroup) ([]cloud.Rule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpList, cloud.KindSecurityGroup, group.Name); err != nil {
		return nil, err
	}
	g, ok := b.groups[group.Name]
	if !ok {
		return nil, cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}
	return slices.Clone(g.rules), nil
}

func (b *Backend) AddRules(_ context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpAdd, cloud.KindSecurityGroup, group.Name); err != nil {
		return err
	}
	g, ok := b.groups[group.Name]
	if !ok {
		return cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}
	for _, r := range rules {
		if slices.Contains(g.rules, r) {
			return cloud.ConflictError(cloud.KindSecurityGroup, group.Name+" rule")
		}
		g.rules = append(g.rules, r)
	}
	return nil
}

func (b *Backend) RemoveRules(_ context.Context, group *cloud.SecurityGroup, rules []cloud.Rule) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(OpRemove, cloud.KindSecurityGroup, group.Name); err != nil {
		return err
	}
	g, ok := b.groups[group.Name]
	if !ok {
		return cloud.NotFoundError(cloud.KindSecurityGroup, group.Name)
	}
	g.rules = slices.DeleteFunc(g.rules, func(r cloud.Rule) bool { return slices.Contains(rules, r) })
	return nil
}
