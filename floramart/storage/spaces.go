package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SpacesService stores product media in a DigitalOcean Spaces bucket via the
// S3 API.
type SpacesService struct {
	client    *s3.Client
	bucket    string
	region    string
	MediaRoot string
}

func NewSpacesService(spacesKey, spacesSecret, region, bucket, mediaRoot string) (*SpacesService, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL: fmt.Sprintf("https://%s.digitaloceanspaces.com", region),
		}, nil
	})

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(spacesKey, spacesSecret, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load Spaces config: %w", err)
	}

	return &SpacesService{
		client:    s3.NewFromConfig(cfg),
		bucket:    bucket,
		region:    region,
		MediaRoot: strings.TrimPrefix(mediaRoot, "/"),
	}, nil
}

// UploadProductImage stores the image under the product's media path and
// returns its public URL.
func (s *SpacesService) UploadProductImage(ctx context.Context, productID int64, filename string, contentType string, body io.Reader) (string, error) {
	key := s.productKey(productID, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
		ACL:         "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload product image: %w", err)
	}

	return s.PublicURL(key), nil
}

func (s *SpacesService) DeleteProductImage(ctx context.Context, productID int64, filename string) error {
	key := s.productKey(productID, filename)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("failed to delete product image (%s): %w", key, err)
	}
	return nil
}

func (s *SpacesService) PublicURL(key string) string {
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", s.bucket, s.region, key)
}

func (s *SpacesService) productKey(productID int64, filename string) string {
	return fmt.Sprintf("%s/products/%d/%s", s.MediaRoot, productID, strings.TrimPrefix(filename, "/"))
}

func (s *SpacesService) GetBucket() string {
	return s.bucket
}

func (s *SpacesService) GetRegion() string {
	return s.region
}
