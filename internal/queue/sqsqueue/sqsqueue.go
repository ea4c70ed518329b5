// Package sqsqueue implements the queue contract against Amazon SQS.
package sqsqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"

	"riptide/internal/config"
	"riptide/internal/queue"
)

// Client is the subset of the SQS API the consumer uses.
type Client interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls one SQS queue.
type Consumer struct {
	client     Client
	queueURL   string
	waitTime   int32
	visibility int32
}

// New builds a Consumer from worker configuration.
func New(ctx context.Context, cfg *config.Config) (*Consumer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Queue.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(sqs.NewFromConfig(awsCfg), cfg), nil
}

// NewWithClient wires an explicit client, used by tests.
func NewWithClient(client Client, cfg *config.Config) *Consumer {
	return &Consumer{
		client:     client,
		queueURL:   cfg.Queue.URL,
		waitTime:   int32(cfg.Queue.PollWaitSeconds),
		visibility: int32(cfg.Queue.VisibilitySeconds),
	}
}

// Receive long-polls for at most one message.
func (c *Consumer) Receive(ctx context.Context) (*queue.Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     c.waitTime,
		VisibilityTimeout:   c.visibility,
	})
	if err != nil {
		return nil, fmt.Errorf("receive message: %w", err)
	}
	if len(out.Messages) == 0 {
		return nil, nil
	}
	msg := out.Messages[0]
	return &queue.Message{
		Body:    []byte(aws.ToString(msg.Body)),
		Receipt: aws.ToString(msg.ReceiptHandle),
	}, nil
}

// Extend pushes the message's visibility expiry forward by d from now.
func (c *Consumer) Extend(ctx context.Context, receipt string, d time.Duration) error {
	_, err := c.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(c.queueURL),
		ReceiptHandle:     aws.String(receipt),
		VisibilityTimeout: int32(d / time.Second),
	})
	if err != nil {
		if isReceiptError(err) {
			return fmt.Errorf("%w: %w", queue.ErrReceiptInvalid, err)
		}
		return fmt.Errorf("change message visibility: %w", err)
	}
	return nil
}

// Delete resolves the message permanently.
func (c *Consumer) Delete(ctx context.Context, receipt string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		if isReceiptError(err) {
			return fmt.Errorf("%w: %w", queue.ErrReceiptInvalid, err)
		}
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func isReceiptError(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ReceiptHandleIsInvalid", "MessageNotInflight", "InvalidParameterValue":
		return true
	default:
		return false
	}
}
