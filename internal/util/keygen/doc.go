// Package keygen generates SSH key pairs used as node identities.
//
// On backends without an instance-profile concept the identity-profile
// resource of a workspace is an SSH key: the public half is registered with
// the provider under the profile name and the private half is handed back to
// the caller once, at creation time.
package keygen
