package aws

import "fmt"

const (
	// assumeRolePolicy lets EC2 instances assume workspace roles.
	assumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {
        "Service": "ec2.amazonaws.com"
      },
      "Action": "sts:AssumeRole"
    }
  ]
}
`
	// computePolicyName is the inline policy letting the head node manage
	// worker instances.
	computePolicyName = "wsctl-compute"
	computePolicy     = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "WsctlComputeActions",
      "Effect": "Allow",
      "Action": [
        "ec2:CreateTags",
        "ec2:DescribeAvailabilityZones",
        "ec2:DescribeImages",
        "ec2:DescribeInstances",
        "ec2:DescribeInstanceTypes",
        "ec2:DescribeSecurityGroups",
        "ec2:DescribeSubnets",
        "ec2:RunInstances",
        "ec2:StartInstances",
        "ec2:StopInstances",
        "ec2:TerminateInstances",
        "iam:PassRole"
      ],
      "Resource": "*"
    }
  ]
}
`
	// storagePolicyName is the inline policy granting access to the
	// workspace bucket.
	storagePolicyName = "wsctl-storage"
)

// storagePolicy grants object access to one bucket.
func storagePolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Sid": "WsctlBucketList",
      "Effect": "Allow",
      "Action": ["s3:ListBucket", "s3:GetBucketLocation"],
      "Resource": "arn:aws:s3:::%[1]s"
    },
    {
      "Sid": "WsctlObjectAccess",
      "Effect": "Allow",
      "Action": ["s3:GetObject", "s3:PutObject", "s3:DeleteObject"],
      "Resource": "arn:aws:s3:::%[1]s/*"
    }
  ]
}
`, bucket)
}
