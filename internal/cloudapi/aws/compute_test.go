package aws

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

func TestGroupFromAWS(t *testing.T) {
	desc := groupFromAWS(astypes.AutoScalingGroup{
		AutoScalingGroupName:   aws.String("web-od"),
		DesiredCapacity:        aws.Int32(4),
		MinSize:                aws.Int32(1),
		MaxSize:                aws.Int32(10),
		AvailabilityZones:      []string{"us-east-1a"},
		LoadBalancerNames:      []string{"web-elb"},
		HealthCheckType:        aws.String("ELB"),
		HealthCheckGracePeriod: aws.Int32(300),
		LaunchTemplate: &astypes.LaunchTemplateSpecification{
			LaunchTemplateName: aws.String("web"),
		},
		Tags: []astypes.TagDescription{
			{Key: aws.String("GroupType"), Value: aws.String("OnDemand")},
			{Key: aws.String("PreferredTypes"), Value: aws.String("c3.large")},
			{Key: nil, Value: aws.String("dropped")},
		},
	})
	if desc == nil {
		t.Fatal("groupFromAWS returned nil")
	}

	if desc.Name != "web-od" || desc.LaunchTemplateName != "web" {
		t.Errorf("identity fields wrong: %+v", desc)
	}
	if desc.DesiredCapacity != 4 || desc.MinSize != 1 || desc.MaxSize != 10 {
		t.Errorf("capacity fields wrong: %+v", desc)
	}
	if !desc.IsOnDemand() {
		t.Error("GroupType tag not converted")
	}
	if len(desc.Tags) != 2 {
		t.Errorf("tags = %d, want 2 (nil-key tag dropped)", len(desc.Tags))
	}
}

func TestGroupFromAWSRequiresName(t *testing.T) {
	if desc := groupFromAWS(astypes.AutoScalingGroup{}); desc != nil {
		t.Errorf("expected nil for unnamed group, got %+v", desc)
	}
}

func TestTemplateFromAWS(t *testing.T) {
	desc := templateFromAWS(ec2types.LaunchTemplateVersion{
		LaunchTemplateName: aws.String("web"),
		LaunchTemplateData: &ec2types.ResponseLaunchTemplateData{
			ImageId:        aws.String("ami-1234"),
			KeyName:        aws.String("ops"),
			SecurityGroups: []string{"sg-1"},
			UserData:       aws.String("IyEvYmluL3No"),
			InstanceType:   ec2types.InstanceTypeC3Large,
			InstanceMarketOptions: &ec2types.LaunchTemplateInstanceMarketOptions{
				SpotOptions: &ec2types.LaunchTemplateSpotMarketOptions{
					MaxPrice: aws.String("0.40"),
				},
			},
		},
	})
	if desc == nil {
		t.Fatal("templateFromAWS returned nil")
	}

	if desc.Name != "web" || desc.ImageID != "ami-1234" || desc.KeyName != "ops" {
		t.Errorf("identity fields wrong: %+v", desc)
	}
	if desc.InstanceType != "c3.large" {
		t.Errorf("InstanceType = %q, want c3.large", desc.InstanceType)
	}
	if desc.SpotPrice != "0.40" {
		t.Errorf("SpotPrice = %q, want 0.40", desc.SpotPrice)
	}
}

func TestTemplateFromAWSWithoutData(t *testing.T) {
	if desc := templateFromAWS(ec2types.LaunchTemplateVersion{LaunchTemplateName: aws.String("web")}); desc != nil {
		t.Errorf("expected nil without template data, got %+v", desc)
	}
}

func TestTagsToAWS(t *testing.T) {
	tags := tagsToAWS("web-od-spot", map[string]string{
		cloudapi.TagGroupType: cloudapi.GroupTypeSpot,
		cloudapi.TagName:      "web-od-spot",
	})
	if len(tags) != 2 {
		t.Fatalf("tags = %d, want 2", len(tags))
	}
	for _, tag := range tags {
		if !aws.ToBool(tag.PropagateAtLaunch) {
			t.Errorf("tag %q must propagate at launch", aws.ToString(tag.Key))
		}
		if aws.ToString(tag.ResourceId) != "web-od-spot" {
			t.Errorf("tag %q resource id = %q", aws.ToString(tag.Key), aws.ToString(tag.ResourceId))
		}
	}
}
