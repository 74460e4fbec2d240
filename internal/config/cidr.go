package config

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// CIDRSubnet calculates a subnet address given a network prefix, the number of
// bits to extend the prefix by and a zero-based subnet number, the way
// Terraform's cidrsubnet does. Only IPv4 is supported.
func CIDRSubnet(prefix string, newbits int, netnum int) (string, error) {
	network, err := parseIPv4Prefix(prefix)
	if err != nil {
		return "", err
	}

	newBits := network.Bits() + newbits
	if newbits < 0 || newBits > 32 {
		return "", fmt.Errorf("prefix extension of %d bits is too large for %s", newbits, prefix)
	}
	if netnum < 0 || netnum >= 1<<newbits {
		return "", fmt.Errorf("subnet number %d exceeds max subnets %d", netnum, 1<<newbits)
	}

	base := ipToUint32(network.Addr())
	// #nosec G115
	offset := uint32(netnum) << (32 - newBits)

	return netip.PrefixFrom(uint32ToIP(base+offset), newBits).String(), nil
}

// AvailableSubnets returns the first count subnets of the network, each
// newbits longer than the network prefix, that do not overlap any of the
// existing CIDRs. It fails when the network cannot fit count more subnets.
func AvailableSubnets(networkCIDR string, existing []string, newbits, count int) ([]string, error) {
	network, err := parseIPv4Prefix(networkCIDR)
	if err != nil {
		return nil, err
	}

	used := make([]netip.Prefix, 0, len(existing))
	for _, cidr := range existing {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid existing subnet %q: %w", cidr, err)
		}
		used = append(used, p.Masked())
	}

	maxSubnets := 1 << newbits
	subnets := make([]string, 0, count)
	for i := 0; i < maxSubnets && len(subnets) < count; i++ {
		candidate, err := CIDRSubnet(network.String(), newbits, i)
		if err != nil {
			return nil, err
		}
		p := netip.MustParsePrefix(candidate)
		if overlapsAny(p, used) {
			continue
		}
		subnets = append(subnets, candidate)
	}

	if len(subnets) < count {
		return nil, fmt.Errorf("network %s has only %d free /%d subnets, need %d",
			networkCIDR, len(subnets), network.Bits()+newbits, count)
	}
	return subnets, nil
}

func overlapsAny(p netip.Prefix, used []netip.Prefix) bool {
	for _, u := range used {
		if p.Overlaps(u) {
			return true
		}
	}
	return false
}

func parseIPv4Prefix(prefix string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(prefix)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid CIDR prefix: %w", err)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("only IPv4 addresses are supported, got IPv6: %s", prefix)
	}
	return p.Masked(), nil
}

func ipToUint32(addr netip.Addr) uint32 {
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:])
}

func uint32ToIP(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
