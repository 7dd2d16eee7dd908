package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

// OnDemandPriceClient resolves standard hourly rates through the AWS
// Pricing API. Rates change rarely, so results are cached for the
// lifetime of the process.
type OnDemandPriceClient struct {
	pricingClient *pricing.Client
	region        string
	logger        *slog.Logger

	mu    sync.Mutex
	cache map[string]float64
}

// NewOnDemandPriceClient creates a pricing client. Prices are filtered
// to the given region even though the Pricing API itself only exists in
// us-east-1.
func NewOnDemandPriceClient(ctx context.Context, region string, logger *slog.Logger) (*OnDemandPriceClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &OnDemandPriceClient{
		pricingClient: pricing.NewFromConfig(cfg, func(o *pricing.Options) {
			o.Region = "us-east-1"
		}),
		region: region,
		logger: logger,
		cache:  make(map[string]float64),
	}, nil
}

// OnDemandPrice returns the hourly Linux on-demand rate for an instance
// type in the client's region.
func (c *OnDemandPriceClient) OnDemandPrice(ctx context.Context, instanceType string) (float64, error) {
	c.mu.Lock()
	if price, ok := c.cache[instanceType]; ok {
		c.mu.Unlock()
		return price, nil
	}
	c.mu.Unlock()

	input := &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters: []pricingtypes.Filter{
			termMatch("instanceType", instanceType),
			termMatch("operatingSystem", "Linux"),
			termMatch("preInstalledSw", "NA"),
			termMatch("tenancy", "Shared"),
			termMatch("capacitystatus", "Used"),
			termMatch("regionCode", c.region),
		},
		MaxResults: aws.Int32(1),
	}

	result, err := c.pricingClient.GetProducts(ctx, input)
	if err != nil {
		return 0, cloudapi.External("GetProducts", err)
	}
	if len(result.PriceList) == 0 {
		return 0, fmt.Errorf("no on-demand pricing found for %s in %s", instanceType, c.region)
	}

	price, err := parseOnDemandPrice(result.PriceList[0])
	if err != nil {
		return 0, fmt.Errorf("parse on-demand price for %s: %w", instanceType, err)
	}

	c.mu.Lock()
	c.cache[instanceType] = price
	c.mu.Unlock()

	return price, nil
}

func termMatch(field, value string) pricingtypes.Filter {
	return pricingtypes.Filter{
		Type:  pricingtypes.FilterTypeTermMatch,
		Field: aws.String(field),
		Value: aws.String(value),
	}
}

// pricingDocument is the slice of the Pricing API payload we care
// about: terms.OnDemand.<term>.priceDimensions.<dim>.pricePerUnit.
type pricingDocument struct {
	Terms struct {
		OnDemand map[string]struct {
			PriceDimensions map[string]struct {
				PricePerUnit map[string]string `json:"pricePerUnit"`
			} `json:"priceDimensions"`
		} `json:"OnDemand"`
	} `json:"terms"`
}

// parseOnDemandPrice extracts the lowest positive USD hourly rate from
// a Pricing API product document.
func parseOnDemandPrice(priceList string) (float64, error) {
	var doc pricingDocument
	if err := json.Unmarshal([]byte(priceList), &doc); err != nil {
		return 0, fmt.Errorf("failed to parse pricing payload: %w", err)
	}

	best := 0.0
	found := false
	for _, term := range doc.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			raw, ok := dim.PricePerUnit["USD"]
			if !ok {
				continue
			}
			price, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil || price <= 0 {
				continue
			}
			if !found || price < best {
				best = price
				found = true
			}
		}
	}

	if !found {
		return 0, fmt.Errorf("unable to extract USD on-demand price from payload")
	}
	return best, nil
}

// Compile-time interface check.
var _ cloudapi.OnDemandPriceAPI = (*OnDemandPriceClient)(nil)
