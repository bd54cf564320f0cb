package queue

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Delivery is one received queue entry awaiting acknowledgement.
type Delivery struct {
	Body          string
	ReceiptHandle string
}

// Receiver drains background work. Delete acknowledges a processed delivery.
type Receiver interface {
	Receive(ctx context.Context, max int32, wait time.Duration) ([]Delivery, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// SQSQueue sends and receives messages through AWS SQS.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSQueue builds a queue client from the ambient AWS configuration.
func NewSQSQueue(ctx context.Context, region, queueURL string) (*SQSQueue, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs queue url is required")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSQueue{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

func (q *SQSQueue) Send(ctx context.Context, msg Message) error {
	body, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &q.queueURL,
		MessageBody: &body,
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int32, wait time.Duration) ([]Delivery, error) {
	if max <= 0 {
		max = 1
	}
	if max > 10 {
		max = 10
	}
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.queueURL,
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}
	deliveries := make([]Delivery, 0, len(out.Messages))
	for _, m := range out.Messages {
		d := Delivery{}
		if m.Body != nil {
			d.Body = *m.Body
		}
		if m.ReceiptHandle != nil {
			d.ReceiptHandle = *m.ReceiptHandle
		}
		deliveries = append(deliveries, d)
	}
	return deliveries, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.queueURL,
		ReceiptHandle: &receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

var (
	_ Client   = (*SQSQueue)(nil)
	_ Receiver = (*SQSQueue)(nil)
)
