package report

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/moodkeeper/internal/netx"
	"github.com/google/uuid"
)

type S3Config struct {
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
	PresignTTL   time.Duration
	UsePathStyle bool
}

type putPresigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) putPresigner { return s3.NewPresignClient(c) }
)

// S3Exporter uploads reports to an S3-compatible bucket through a presigned
// PUT URL.
type S3Exporter struct {
	cfg    S3Config
	client netx.HTTPClient
}

// NewS3Exporter builds an exporter; a nil client uses http.DefaultClient.
func NewS3Exporter(cfg S3Config, client netx.HTTPClient) *S3Exporter {
	if cfg.PresignTTL == 0 {
		cfg.PresignTTL = 15 * time.Minute
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "reports"
	}
	return &S3Exporter{cfg: cfg, client: client}
}

func (e *S3Exporter) presignClient(ctx context.Context) (putPresigner, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(e.cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(e.cfg.AccessKey, e.cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if e.cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(e.cfg.Endpoint)
		}
		o.UsePathStyle = e.cfg.UsePathStyle
	})
	return newS3PresignClient(client), nil
}

// objectKey is <prefix>/<yyyy>/<mm>/<dd>/<uuid>.json.
func (e *S3Exporter) objectKey(at time.Time) string {
	return fmt.Sprintf("%s/%04d/%02d/%02d/%s.json", e.cfg.Prefix, at.Year(), at.Month(), at.Day(), uuid.NewString())
}

func (e *S3Exporter) Export(ctx context.Context, r Report) (string, error) {
	data, err := r.Marshal()
	if err != nil {
		return "", err
	}

	pc, err := e.presignClient(ctx)
	if err != nil {
		return "", fmt.Errorf("s3 client: %w", err)
	}

	bucket := e.cfg.Bucket
	key := e.objectKey(r.GeneratedAt)
	req, err := pc.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(e.cfg.PresignTTL))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, e.client, req.URL, ContentType, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}
