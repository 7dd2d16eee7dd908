package aws

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

// productDescription restricts price history to Linux spot capacity.
const productDescription = "Linux/UNIX"

// PriceHistoryClient implements cloudapi.PriceHistoryAPI against the
// EC2 spot price history API.
type PriceHistoryClient struct {
	ec2Client *ec2.Client
	logger    *slog.Logger
}

// NewPriceHistoryClient creates a price history client for the region.
func NewPriceHistoryClient(ctx context.Context, region string, logger *slog.Logger) (*PriceHistoryClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &PriceHistoryClient{
		ec2Client: ec2.NewFromConfig(cfg),
		logger:    logger,
	}, nil
}

// SpotPriceHistory pages through every observation for the pair within
// [start, end]. Samples with unparseable prices are dropped.
func (c *PriceHistoryClient) SpotPriceHistory(ctx context.Context, instanceType, availabilityZone string, start, end time.Time) ([]cloudapi.SpotPriceSample, error) {
	input := &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []ec2types.InstanceType{ec2types.InstanceType(instanceType)},
		AvailabilityZone:    aws.String(availabilityZone),
		StartTime:           aws.Time(start),
		EndTime:             aws.Time(end),
		ProductDescriptions: []string{productDescription},
	}

	var samples []cloudapi.SpotPriceSample
	paginator := ec2.NewDescribeSpotPriceHistoryPaginator(c.ec2Client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloudapi.External("DescribeSpotPriceHistory", err)
		}
		for _, observation := range page.SpotPriceHistory {
			if observation.SpotPrice == nil {
				continue
			}
			price, err := strconv.ParseFloat(*observation.SpotPrice, 64)
			if err != nil {
				c.logger.Debug("dropping unparseable spot price sample",
					"instance_type", instanceType,
					"zone", availabilityZone,
					"raw", *observation.SpotPrice,
				)
				continue
			}
			samples = append(samples, cloudapi.SpotPriceSample{
				InstanceType:     instanceType,
				AvailabilityZone: availabilityZone,
				Price:            price,
				Timestamp:        aws.ToTime(observation.Timestamp),
			})
		}
	}

	return samples, nil
}

// Compile-time interface check.
var _ cloudapi.PriceHistoryAPI = (*PriceHistoryClient)(nil)
