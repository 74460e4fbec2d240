// Package s3 manages the workspace bucket on any S3-compatible object
// store.
//
// Client implements cloud.StorageManager and is shared by the Hetzner
// adapter (Object Storage behind a regional endpoint) and the AWS adapter
// (regular S3 through the default credential chain). Provider errors are
// classified into the cloud error kinds so the orchestrator can tell a
// missing bucket from a throttled request.
package s3
