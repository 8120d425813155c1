package sqs

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/iyhunko/catalog-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClient_Integration_WithLocalStack tests the SQS client with LocalStack endpoint.
// This test requires LocalStack to be running on localhost:4566 with the catalog-notifications queue created.
// Run with: go test -v -run Integration ./internal/sqs/...
func TestClient_Integration_WithLocalStack(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	endpoint := os.Getenv("AWS_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:4566"
	}

	queueURL := os.Getenv("SQS_QUEUE_URL")
	if queueURL == "" {
		queueURL = "http://localhost:4566/000000000000/catalog-notifications"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sqsClient, err := NewClient(ctx, "us-east-1", endpoint)
	require.NoError(t, err)

	if _, err := sqsClient.ListQueues(ctx, &sqs.ListQueuesInput{}); err != nil {
		t.Skipf("LocalStack not available: %v", err)
	}

	t.Run("publish and receive message with custom endpoint", func(t *testing.T) {
		publisher := NewPublisher(sqsClient, queueURL)

		msg := CatalogMessage{
			Action:    model.EventProductCreated,
			ProductID: "test-product-integration-123",
			Name:      "Integration Test Product",
			Price:     99.99,
		}

		if err := publisher.PublishCatalogMessage(ctx, msg); err != nil {
			t.Skipf("Failed to publish message (queue may not exist): %v", err)
		}

		output, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(queueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       2,
			MessageAttributeNames: []string{actionAttribute},
		})
		require.NoError(t, err)
		require.NotEmpty(t, output.Messages, "Expected at least one message in the queue")

		var found bool
		for _, sqsMsg := range output.Messages {
			var receivedMsg CatalogMessage
			if err := json.Unmarshal([]byte(*sqsMsg.Body), &receivedMsg); err != nil || receivedMsg.ProductID != msg.ProductID {
				continue
			}
			found = true
			assert.Equal(t, msg.Action, receivedMsg.Action)
			assert.Equal(t, msg.Name, receivedMsg.Name)
			assert.Equal(t, msg.Action, *sqsMsg.MessageAttributes[actionAttribute].StringValue)

			_, err := sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(queueURL),
				ReceiptHandle: sqsMsg.ReceiptHandle,
			})
			assert.NoError(t, err)
			break
		}

		assert.True(t, found, "Did not find our test message in the queue")
	})
}
