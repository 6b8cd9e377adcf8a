package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dgallion1/pdflayout/internal/result"
)

// S3Config locates the uploaded results object.
type S3Config struct {
	Region    string
	Bucket    string
	Key       string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads the results array as a single JSON object.
type S3Sink struct {
	bucket   string
	key      string
	uploader uploader
}

// NewS3Sink builds an uploader from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
// A custom Endpoint switches to path-style addressing for S3-compatible
// stores such as MinIO.
func NewS3Sink(ctx context.Context, cfg S3Config) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &S3Sink{
		bucket:   cfg.Bucket,
		key:      cfg.Key,
		uploader: manager.NewUploader(client),
	}, nil
}

// Location returns the s3:// URI results are written to.
func (s *S3Sink) Location() string {
	return "s3://" + s.bucket + "/" + s.key
}

func (s *S3Sink) Save(ctx context.Context, docs []result.Document) error {
	content, err := Marshal(docs)
	if err != nil {
		return &IOError{Op: "encode", Path: s.Location(), Err: err}
	}
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &IOError{Op: "upload", Path: s.Location(), Err: fmt.Errorf("s3 upload: %w", err)}
	}
	return nil
}
