package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPresignClient struct {
	presignFunc func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	calls       int
}

func (m *mockPresignClient) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	m.calls++
	return m.presignFunc(ctx, params, optFns...)
}

func TestImagePresigner_ResolveImage(t *testing.T) {
	ctx := context.Background()

	t.Run("should presign object keys", func(t *testing.T) {
		// given
		client := &mockPresignClient{
			presignFunc: func(_ context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
				assert.Equal(t, "catalog-images", *params.Bucket)
				assert.Equal(t, "products/k2.png", *params.Key)

				var opts s3.PresignOptions
				for _, fn := range optFns {
					fn(&opts)
				}
				assert.Equal(t, 15*time.Minute, opts.Expires)
				return &v4.PresignedHTTPRequest{URL: "https://signed.example/products/k2.png?X-Amz-Signature=abc"}, nil
			},
		}
		presigner := NewImagePresigner(client, "catalog-images", 15*time.Minute)

		// when
		url, err := presigner.ResolveImage(ctx, "/products/k2.png")

		// then
		require.NoError(t, err)
		assert.Equal(t, "https://signed.example/products/k2.png?X-Amz-Signature=abc", url)
	})

	t.Run("should pass through absolute URLs and empty values", func(t *testing.T) {
		client := &mockPresignClient{}
		presigner := NewImagePresigner(client, "catalog-images", time.Minute)

		for _, image := range []string{"", "https://cdn.example/k2.png", "HTTP://cdn.example/k2.png"} {
			url, err := presigner.ResolveImage(ctx, image)
			require.NoError(t, err)
			assert.Equal(t, image, url)
		}
		assert.Zero(t, client.calls)
	})

	t.Run("should return signing errors", func(t *testing.T) {
		client := &mockPresignClient{
			presignFunc: func(context.Context, *s3.GetObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
				return nil, errors.New("no credentials")
			},
		}
		presigner := NewImagePresigner(client, "catalog-images", time.Minute)

		_, err := presigner.ResolveImage(ctx, "k2.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to sign request")
	})
}
