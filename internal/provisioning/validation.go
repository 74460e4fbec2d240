package provisioning

import (
	"fmt"
	"net"
	"strings"

	"github.com/imamik/wsctl/internal/config"
)

// ValidationError represents a pre-flight finding.
type ValidationError struct {
	Field    string // Configuration field the finding is about
	Message  string // Human-readable message
	Severity string // "error" or "warning"
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// Preflight checks the configuration for problems that schema validation
// does not catch. Warnings are reported to the observer; errors abort before
// any backend call is made.
func Preflight(ctx *Context) error {
	var errs []string
	for _, ve := range preflight(ctx.Config) {
		if ve.IsError() {
			errs = append(errs, ve.Error())
			continue
		}
		ctx.Observer.Event(Event{
			Type:    EventValidationWarning,
			Message: ve.Message,
			Fields:  map[string]string{"field": ve.Field},
		})
	}

	if len(errs) > 0 {
		return fmt.Errorf("pre-flight validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func preflight(cfg *config.Config) []ValidationError {
	var errs []ValidationError

	// --- Network ---

	if !cfg.UseWorkingNetwork {
		if _, ipNet, err := net.ParseCIDR(cfg.NetworkCIDR); err == nil {
			ones, _ := ipNet.Mask.Size()
			if ones+config.SubnetNewBits > 32 {
				errs = append(errs, ValidationError{
					Field:    "network_cidr",
					Message:  fmt.Sprintf("prefix /%d leaves no room for /%d subnets", ones, ones+config.SubnetNewBits),
					Severity: "error",
				})
			}
			if ones > 16 {
				errs = append(errs, ValidationError{
					Field:    "network_cidr",
					Message:  fmt.Sprintf("CIDR prefix /%d is small, /16 is recommended", ones),
					Severity: "warning",
				})
			}
		}
	}

	// --- Security rules ---

	for i, rule := range cfg.SecurityRules {
		for _, cidr := range rule.CIDRs {
			if !isWorldCIDR(cidr) {
				continue
			}
			switch {
			case rule.Protocol == "all" || (rule.FromPort <= 1 && rule.ToPort >= 65535):
				errs = append(errs, ValidationError{
					Field:    fmt.Sprintf("security_rules[%d]", i),
					Message:  "rule opens every port to the internet",
					Severity: "warning",
				})
			case rule.FromPort <= config.SSHPort && rule.ToPort >= config.SSHPort:
				errs = append(errs, ValidationError{
					Field:    fmt.Sprintf("security_rules[%d]", i),
					Message:  "SSH is reachable from the internet, consider restricting allowed_ssh_sources",
					Severity: "warning",
				})
			}
		}
	}

	// --- Peering ---

	if cfg.UsePeeringNetwork && !cfg.PeeringFirewall.AllowWorkingSubnet {
		errs = append(errs, ValidationError{
			Field:    "peering_firewall.allow_working_subnet",
			Message:  "peering is enabled but the working network is not allowed through the security group",
			Severity: "warning",
		})
	}

	return errs
}

func isWorldCIDR(cidr string) bool {
	_, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	ones, _ := ipNet.Mask.Size()
	return ones == 0
}
