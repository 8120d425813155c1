package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignAPI defines the presign operation used by ImagePresigner.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ImagePresigner turns stored image object keys into time-limited GET URLs.
type ImagePresigner struct {
	client PresignAPI
	bucket string
	ttl    time.Duration
}

// NewImagePresigner creates an ImagePresigner for bucket.
func NewImagePresigner(client PresignAPI, bucket string, ttl time.Duration) *ImagePresigner {
	return &ImagePresigner{client: client, bucket: bucket, ttl: ttl}
}

// NewPresignClient creates an S3 presign client. A custom endpoint (LocalStack) switches to path-style addressing.
func NewPresignClient(ctx context.Context, region, endpoint string) (*s3.PresignClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return s3.NewPresignClient(client), nil
}

// ResolveImage returns a presigned URL for an object key. Empty values and absolute
// http(s) URLs are returned unchanged.
func (p *ImagePresigner) ResolveImage(ctx context.Context, image string) (string, error) {
	if image == "" || isAbsoluteURL(image) {
		return image, nil
	}

	request, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(strings.TrimPrefix(image, "/")),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}

	return request.URL, nil
}

func isAbsoluteURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
