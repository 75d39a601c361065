package media

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

// SpacesClient stores media files (notification images, course thumbnails,
// notes) in DigitalOcean Spaces through the S3 API.
type SpacesClient struct {
	s3Client *s3.S3
	bucket   string
	endpoint string
	cdnURL   string
}

// SpacesConfig holds configuration for the Spaces client
type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Endpoint  string
	CDNURL    string
}

// NewSpacesClient creates a new Spaces client
func NewSpacesClient(config SpacesConfig) (*SpacesClient, error) {
	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		Endpoint:         aws.String(config.Endpoint),
		Region:           aws.String(config.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return &SpacesClient{
		s3Client: s3.New(sess),
		bucket:   config.Bucket,
		endpoint: config.Endpoint,
		cdnURL:   config.CDNURL,
	}, nil
}

// Upload stores a file under a generated key and returns its public URL
func (s *SpacesClient) Upload(ctx context.Context, folder, filename string, data io.ReadSeeker, contentType string) (string, error) {
	key := fmt.Sprintf("%s/%d-%s%s", folder, time.Now().Unix(), uuid.New().String()[:8], filepath.Ext(filename))

	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        data,
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	return s.URL(key), nil
}

// Delete removes an object by its public URL. Unknown URLs are ignored so
// purge paths stay idempotent.
func (s *SpacesClient) Delete(ctx context.Context, fileURL string) error {
	key := s.keyFromURL(fileURL)
	if key == "" {
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// URL returns the public URL for a stored key
func (s *SpacesClient) URL(key string) string {
	if s.cdnURL != "" {
		return fmt.Sprintf("%s/%s", s.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", s.bucket, s.endpoint, key)
}

func (s *SpacesClient) keyFromURL(fileURL string) string {
	prefixes := []string{
		s.cdnURL + "/",
		fmt.Sprintf("https://%s.%s/", s.bucket, s.endpoint),
	}
	for _, prefix := range prefixes {
		if prefix != "/" && strings.HasPrefix(fileURL, prefix) {
			return strings.TrimPrefix(fileURL, prefix)
		}
	}
	return ""
}
