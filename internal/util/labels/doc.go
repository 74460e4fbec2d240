// Package labels provides consistent labeling for workspace resources.
//
// Labels (Hetzner Cloud) and tags (AWS) identify which workspace owns a
// resource and what kind it is. All keys use the wsctl.io domain prefix.
package labels
