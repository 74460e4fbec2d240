// Package aws implements cloud.Backend on Amazon Web Services.
//
// Workspace resources map onto AWS as follows:
//
//   - network: a VPC with DNS hostnames enabled
//   - subnet: a VPC subnet; the public one maps public IPs on launch
//   - gateway: a NAT gateway with an Elastic IP, placed in the public
//     subnet, plus the internet gateway of the VPC
//   - egress rule: a route table associated with one subnet whose default
//     route points at the NAT gateway, or at the internet gateway for the
//     subnet the NAT gateway lives in
//   - security group: an EC2 security group with one ingress permission
//     per rule
//   - peering: a VPC peering connection with routes added on both sides
//   - identity profile: an IAM role and an instance profile of the same name
//   - storage bucket: an S3 bucket via the platform s3 client
//
// Resources are found by their Name tag. Every EC2 and IAM call goes through
// the narrow EC2API and IAMAPI interfaces so tests can substitute in-memory
// implementations.
package aws
