// Package config defines the workspace configuration model.
//
// A [Config] is loaded once per invocation from a YAML file, overlaid with
// secrets from the environment, normalized and validated. After loading it is
// treated as read-only by the provisioning layer.
package config
