package aws

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

// QueueClient implements cloudapi.QueueAPI against SQS.
type QueueClient struct {
	sqsClient *sqs.Client
	logger    *slog.Logger
}

// NewQueueClient creates an SQS-backed queue client for the given region.
func NewQueueClient(ctx context.Context, region string, logger *slog.Logger) (*QueueClient, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &QueueClient{
		sqsClient: sqs.NewFromConfig(cfg),
		logger:    logger,
	}, nil
}

// EnsureQueue returns the URL for the named queue, creating it if
// needed. SQS CreateQueue is idempotent for identical attributes.
func (c *QueueClient) EnsureQueue(ctx context.Context, name string) (string, error) {
	result, err := c.sqsClient.CreateQueue(ctx, &sqs.CreateQueueInput{
		QueueName: aws.String(name),
	})
	if err != nil {
		return "", cloudapi.External("CreateQueue", err)
	}
	return aws.ToString(result.QueueUrl), nil
}

// Receive fetches up to maxMessages currently available messages.
func (c *QueueClient) Receive(ctx context.Context, queueURL string, maxMessages int32) ([]cloudapi.Message, error) {
	result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(queueURL),
		MaxNumberOfMessages: maxMessages,
	})
	if err != nil {
		return nil, cloudapi.External("ReceiveMessage", err)
	}

	messages := make([]cloudapi.Message, 0, len(result.Messages))
	for _, msg := range result.Messages {
		messages = append(messages, cloudapi.Message{
			Handle: aws.ToString(msg.ReceiptHandle),
			Body:   aws.ToString(msg.Body),
		})
	}
	return messages, nil
}

// Delete acknowledges one message by receipt handle.
func (c *QueueClient) Delete(ctx context.Context, queueURL string, handle string) error {
	_, err := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(handle),
	})
	if err != nil {
		return cloudapi.External("DeleteMessage", err)
	}
	return nil
}

// Compile-time interface check.
var _ cloudapi.QueueAPI = (*QueueClient)(nil)
