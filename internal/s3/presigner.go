package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	appcfg "workshop-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadURLTTL = 15 * time.Minute

// AvatarPresigner issues presigned PUT URLs for user avatar objects against
// any S3-compatible endpoint.
type AvatarPresigner struct {
	client   *s3.PresignClient
	bucket   string
	endpoint string
}

// NewAvatarPresigner returns nil without error when no S3 endpoint is
// configured; avatar uploads are an optional feature.
func NewAvatarPresigner(cfg appcfg.Config) (*AvatarPresigner, error) {
	if cfg.S3Endpoint == "" || cfg.S3Bucket == "" {
		return nil, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		return aws.Endpoint{
			URL:               cfg.S3Endpoint,
			SigningRegion:     region,
			HostnameImmutable: true,
		}, nil
	})

	awsCfg, err := config.LoadDefaultConfig(
		context.TODO(),
		config.WithRegion(cfg.S3Region),
		config.WithEndpointResolverWithOptions(resolver),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	return &AvatarPresigner{
		client:   s3.NewPresignClient(client),
		bucket:   cfg.S3Bucket,
		endpoint: strings.TrimSuffix(cfg.S3Endpoint, "/"),
	}, nil
}

func (p *AvatarPresigner) PresignUpload(ctx context.Context, objectKey string) (string, error) {
	request, err := p.client.PresignPutObject(ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(objectKey),
		},
		func(opts *s3.PresignOptions) {
			opts.Expires = uploadURLTTL
		},
	)
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

// ObjectURL is the public URL the object will have once uploaded.
func (p *AvatarPresigner) ObjectURL(objectKey string) string {
	return p.endpoint + "/" + p.bucket + "/" + objectKey
}

// AvatarObjectKey namespaces avatar objects per user.
func AvatarObjectKey(userID int64, name string) string {
	return fmt.Sprintf("user-avatars/%d/%s.jpg", userID, name)
}
