package naming

import (
	"fmt"
	"strings"
)

// Prefix is prepended to every workspace resource name.
const Prefix = "wsctl"

// Subnet roles.
const (
	RolePublic  = "public"
	RolePrivate = "private"
)

// Identity profile roles.
const (
	RoleHead   = "head"
	RoleWorker = "worker"
)

const subnetSuffix = "-subnet"

// Base returns the common name root for a workspace.
func Base(workspace string) string {
	return fmt.Sprintf("%s-%s", Prefix, workspace)
}

func Network(workspace string) string {
	return Base(workspace) + "-network"
}

// SubnetRole returns the role of the subnet at index. The first subnet is
// public and hosts the gateway; all others are private.
func SubnetRole(index int) string {
	if index == 0 {
		return RolePublic
	}
	return RolePrivate
}

func Subnet(workspace string, index int) string {
	if index == 0 {
		return fmt.Sprintf("%s-%s%s", Base(workspace), RolePublic, subnetSuffix)
	}
	return fmt.Sprintf("%s-%s-%d%s", Base(workspace), RolePrivate, index, subnetSuffix)
}

// IsSubnet reports whether name is a workspace subnet of the given role.
// An empty role matches subnets of any role.
func IsSubnet(workspace, role, name string) bool {
	switch role {
	case RolePublic:
		return name == Subnet(workspace, 0)
	case RolePrivate:
		rest, ok := strings.CutPrefix(name, Base(workspace)+"-"+RolePrivate+"-")
		if !ok {
			return false
		}
		index, ok := strings.CutSuffix(rest, subnetSuffix)
		return ok && isDigits(index)
	case "":
		return IsSubnet(workspace, RolePublic, name) || IsSubnet(workspace, RolePrivate, name)
	default:
		return false
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func Gateway(workspace string) string {
	return Base(workspace) + "-gateway"
}

// GatewayAddress is the public address the gateway translates egress traffic to.
func GatewayAddress(workspace string) string {
	return Base(workspace) + "-gateway-ip"
}

// EgressRule names the egress rule that routes the subnet at index through the gateway.
func EgressRule(workspace string, subnetIndex int) string {
	return fmt.Sprintf("%s-egress-%d", Base(workspace), subnetIndex)
}

func SecurityGroup(workspace string) string {
	return Base(workspace) + "-sg"
}

func Peering(workspace string) string {
	return Base(workspace) + "-peering"
}

func IdentityProfile(workspace, role string) string {
	return fmt.Sprintf("%s-%s-profile", Base(workspace), role)
}

func StorageBucket(workspace string) string {
	return Base(workspace) + "-bucket"
}
