// Package aws implements the cloudapi boundaries with aws-sdk-go-v2.
// Groups map to Auto Scaling groups, launch templates to EC2 launch
// templates with spot market options, and the notification queue to SQS.
package aws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

const launchTemplateVersionLatest = "$Latest"

// ComputeClient implements cloudapi.ComputeAPI against the Auto Scaling
// and EC2 APIs.
type ComputeClient struct {
	asClient  *autoscaling.Client
	ec2Client *ec2.Client
	logger    *slog.Logger
}

// NewComputeClient creates a compute client for the given region using
// the default credential chain.
func NewComputeClient(ctx context.Context, region string, logger *slog.Logger) (*ComputeClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &ComputeClient{
		asClient:  autoscaling.NewFromConfig(cfg),
		ec2Client: ec2.NewFromConfig(cfg),
		logger:    logger,
	}, nil
}

// DescribeGroups pages through every Auto Scaling group in the region.
func (c *ComputeClient) DescribeGroups(ctx context.Context) ([]cloudapi.GroupDescriptor, error) {
	var groups []cloudapi.GroupDescriptor

	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(c.asClient, &autoscaling.DescribeAutoScalingGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloudapi.External("DescribeAutoScalingGroups", err)
		}
		for _, asg := range page.AutoScalingGroups {
			if desc := groupFromAWS(asg); desc != nil {
				groups = append(groups, *desc)
			}
		}
	}

	return groups, nil
}

// DescribeLaunchTemplates pages through the latest version of every
// launch template in the region.
func (c *ComputeClient) DescribeLaunchTemplates(ctx context.Context) ([]cloudapi.LaunchTemplateDescriptor, error) {
	var templates []cloudapi.LaunchTemplateDescriptor

	input := &ec2.DescribeLaunchTemplateVersionsInput{
		Versions: []string{launchTemplateVersionLatest},
	}
	paginator := ec2.NewDescribeLaunchTemplateVersionsPaginator(c.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloudapi.External("DescribeLaunchTemplateVersions", err)
		}
		for _, version := range page.LaunchTemplateVersions {
			if desc := templateFromAWS(version); desc != nil {
				templates = append(templates, *desc)
			}
		}
	}

	return templates, nil
}

// CreateLaunchTemplate creates a spot-priced launch template. A
// duplicate name surfaces cloudapi.ErrAlreadyExists.
func (c *ComputeClient) CreateLaunchTemplate(ctx context.Context, desc cloudapi.LaunchTemplateDescriptor) error {
	input := &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(desc.Name),
		LaunchTemplateData: &ec2types.RequestLaunchTemplateData{
			ImageId:        aws.String(desc.ImageID),
			InstanceType:   ec2types.InstanceType(desc.InstanceType),
			SecurityGroups: desc.SecurityGroups,
			InstanceMarketOptions: &ec2types.LaunchTemplateInstanceMarketOptionsRequest{
				MarketType: ec2types.MarketTypeSpot,
				SpotOptions: &ec2types.LaunchTemplateSpotMarketOptionsRequest{
					MaxPrice: aws.String(desc.SpotPrice),
				},
			},
		},
	}
	if desc.KeyName != "" {
		input.LaunchTemplateData.KeyName = aws.String(desc.KeyName)
	}
	if desc.UserData != "" {
		input.LaunchTemplateData.UserData = aws.String(desc.UserData)
	}

	_, err := c.ec2Client.CreateLaunchTemplate(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidLaunchTemplateName.AlreadyExistsException" {
			return cloudapi.ErrAlreadyExists
		}
		return cloudapi.External("CreateLaunchTemplate", err)
	}

	c.logger.Info("created launch template",
		"name", desc.Name,
		"instance_type", desc.InstanceType,
		"spot_price", desc.SpotPrice,
	)

	return nil
}

// CreateGroup creates a scaling group backed by the latest version of
// its launch template. A duplicate name surfaces cloudapi.ErrAlreadyExists.
func (c *ComputeClient) CreateGroup(ctx context.Context, desc cloudapi.GroupDescriptor) error {
	input := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(desc.Name),
		AvailabilityZones:    desc.AvailabilityZones,
		DefaultCooldown:      aws.Int32(0),
		DesiredCapacity:      aws.Int32(desc.DesiredCapacity),
		MinSize:              aws.Int32(desc.MinSize),
		MaxSize:              aws.Int32(desc.MaxSize),
		LoadBalancerNames:    desc.LoadBalancerNames,
		LaunchTemplate: &astypes.LaunchTemplateSpecification{
			LaunchTemplateName: aws.String(desc.LaunchTemplateName),
			Version:            aws.String(launchTemplateVersionLatest),
		},
		Tags: tagsToAWS(desc.Name, desc.Tags),
	}
	if desc.HealthCheckType != "" {
		input.HealthCheckType = aws.String(desc.HealthCheckType)
		input.HealthCheckGracePeriod = aws.Int32(desc.HealthCheckGracePeriod)
	}

	_, err := c.asClient.CreateAutoScalingGroup(ctx, input)
	if err != nil {
		var exists *astypes.AlreadyExistsFault
		if errors.As(err, &exists) {
			return cloudapi.ErrAlreadyExists
		}
		return cloudapi.External("CreateAutoScalingGroup", err)
	}

	c.logger.Info("created auto scaling group",
		"name", desc.Name,
		"desired", desc.DesiredCapacity,
		"launch_template", desc.LaunchTemplateName,
	)

	return nil
}

// UpdateGroup points an existing group at a launch template and sets
// its desired capacity.
func (c *ComputeClient) UpdateGroup(ctx context.Context, name string, launchTemplateName string, desiredCapacity int32) error {
	input := &autoscaling.UpdateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(name),
		DesiredCapacity:      aws.Int32(desiredCapacity),
		LaunchTemplate: &astypes.LaunchTemplateSpecification{
			LaunchTemplateName: aws.String(launchTemplateName),
			Version:            aws.String(launchTemplateVersionLatest),
		},
	}

	if _, err := c.asClient.UpdateAutoScalingGroup(ctx, input); err != nil {
		return cloudapi.External("UpdateAutoScalingGroup", err)
	}

	c.logger.Info("updated auto scaling group",
		"name", name,
		"desired", desiredCapacity,
		"launch_template", launchTemplateName,
	)

	return nil
}

// groupFromAWS converts an AWS ASG to a GroupDescriptor.
func groupFromAWS(asg astypes.AutoScalingGroup) *cloudapi.GroupDescriptor {
	if asg.AutoScalingGroupName == nil {
		return nil
	}

	desc := &cloudapi.GroupDescriptor{
		Name:                   *asg.AutoScalingGroupName,
		DesiredCapacity:        aws.ToInt32(asg.DesiredCapacity),
		MinSize:                aws.ToInt32(asg.MinSize),
		MaxSize:                aws.ToInt32(asg.MaxSize),
		AvailabilityZones:      asg.AvailabilityZones,
		LoadBalancerNames:      asg.LoadBalancerNames,
		HealthCheckType:        aws.ToString(asg.HealthCheckType),
		HealthCheckGracePeriod: aws.ToInt32(asg.HealthCheckGracePeriod),
		Tags:                   make(map[string]string, len(asg.Tags)),
	}
	if asg.LaunchTemplate != nil {
		desc.LaunchTemplateName = aws.ToString(asg.LaunchTemplate.LaunchTemplateName)
	}
	for _, tag := range asg.Tags {
		if tag.Key == nil || tag.Value == nil {
			continue
		}
		desc.Tags[*tag.Key] = *tag.Value
	}

	return desc
}

// templateFromAWS converts a launch template version to a descriptor.
func templateFromAWS(version ec2types.LaunchTemplateVersion) *cloudapi.LaunchTemplateDescriptor {
	if version.LaunchTemplateName == nil || version.LaunchTemplateData == nil {
		return nil
	}

	data := version.LaunchTemplateData
	desc := &cloudapi.LaunchTemplateDescriptor{
		Name:           *version.LaunchTemplateName,
		ImageID:        aws.ToString(data.ImageId),
		KeyName:        aws.ToString(data.KeyName),
		SecurityGroups: data.SecurityGroups,
		UserData:       aws.ToString(data.UserData),
		InstanceType:   string(data.InstanceType),
	}
	if data.InstanceMarketOptions != nil && data.InstanceMarketOptions.SpotOptions != nil {
		desc.SpotPrice = aws.ToString(data.InstanceMarketOptions.SpotOptions.MaxPrice)
	}

	return desc
}

// tagsToAWS converts the tag map, always carrying the Name tag.
func tagsToAWS(groupName string, tags map[string]string) []astypes.Tag {
	out := make([]astypes.Tag, 0, len(tags))
	for key, value := range tags {
		out = append(out, astypes.Tag{
			Key:               aws.String(key),
			Value:             aws.String(value),
			PropagateAtLaunch: aws.Bool(true),
			ResourceId:        aws.String(groupName),
			ResourceType:      aws.String("auto-scaling-group"),
		})
	}
	return out
}

// Compile-time interface check.
var _ cloudapi.ComputeAPI = (*ComputeClient)(nil)
