package catalog

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/senas-auth/internal/common"
	sc "github.com/dmitrijs2005/senas-auth/internal/server/config"
)

// PresignValidity is how long a presigned asset link stays usable.
const PresignValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// Service answers catalog listings and presigns asset downloads from the
// configured S3-compatible bucket.
type Service struct {
	config        *sc.Config
	modelsBaseURL string
}

func NewService(cfg *sc.Config) *Service {
	return &Service{config: cfg, modelsBaseURL: "https://example.com"}
}

func (s *Service) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

// PresignAsset returns a GET URL for assetID valid for PresignValidity.
func (s *Service) PresignAsset(ctx context.Context, assetID string) (string, error) {
	key, err := assetKey(assetID)
	if err != nil {
		return "", err
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return req.URL, nil
}

// assetKey maps an asset id onto its object key, refusing ids that would
// escape the assets prefix.
func assetKey(assetID string) (string, error) {
	id := strings.TrimSpace(assetID)
	if id == "" || strings.HasPrefix(id, "/") || strings.Contains(id, "..") {
		return "", fmt.Errorf("%w: invalid asset id", common.ErrValidation)
	}
	return path.Join("assets", id), nil
}
