package aws

import (
	"sort"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// tagName is the tag resources are found by.
const tagName = "Name"

// tagGateway marks egress route tables with the NAT gateway they route to.
const tagGateway = "wsctl.io/gateway"

// ec2Tags converts labels to EC2 tags plus the Name tag, sorted by key.
func ec2Tags(name string, labels map[string]string) []types.Tag {
	tags := []types.Tag{{Key: awssdk.String(tagName), Value: awssdk.String(name)}}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if k != tagName {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		tags = append(tags, types.Tag{Key: awssdk.String(k), Value: awssdk.String(labels[k])})
	}
	return tags
}

func tagSpec(resource types.ResourceType, name string, labels map[string]string) []types.TagSpecification {
	return []types.TagSpecification{{ResourceType: resource, Tags: ec2Tags(name, labels)}}
}

// tagValue returns the value of key in tags, or "".
func tagValue(tags []types.Tag, key string) string {
	for _, t := range tags {
		if awssdk.ToString(t.Key) == key {
			return awssdk.ToString(t.Value)
		}
	}
	return ""
}

func iamTags(labels map[string]string) []iamtypes.Tag {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tags := make([]iamtypes.Tag, 0, len(keys))
	for _, k := range keys {
		tags = append(tags, iamtypes.Tag{Key: awssdk.String(k), Value: awssdk.String(labels[k])})
	}
	return tags
}

func iamTagValue(tags []iamtypes.Tag, key string) string {
	for _, t := range tags {
		if awssdk.ToString(t.Key) == key {
			return awssdk.ToString(t.Value)
		}
	}
	return ""
}

func filter(name string, values ...string) types.Filter {
	return types.Filter{Name: awssdk.String(name), Values: values}
}

func nameFilter(name string) types.Filter {
	return filter("tag:"+tagName, name)
}
