package main

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/vango-dev/nativebridge/internal/errors"
	"github.com/vango-dev/nativebridge/pkg/recording"
)

type uploadOptions struct {
	bucket    string
	prefix    string
	region    string
	endpoint  string
	pathStyle bool
}

func uploadCmd(g *globals) *cobra.Command {
	var opts uploadOptions

	cmd := &cobra.Command{
		Use:   "upload <recording>...",
		Short: "Upload recordings to S3",
		Long: `Upload recordings to an S3 bucket under their base names.

Credentials are read from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and
AWS_SESSION_TOKEN. Use --endpoint and --path-style for S3-compatible
stores such as MinIO.

Examples:
  nativebridge upload session.jsonl --bucket recordings
  nativebridge upload *.jsonl --bucket rec --endpoint http://localhost:9000 --path-style`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.bucket == "" {
				opts.bucket = g.cfg.Recording.S3Bucket
			}
			if opts.prefix == "" {
				opts.prefix = g.cfg.Recording.S3Prefix
			}
			if opts.bucket == "" {
				return errors.New("B050").WithDetail("no bucket given").
					WithSuggestion("Pass --bucket or set recording.s3Bucket in the config")
			}
			client, err := newS3Client(opts)
			if err != nil {
				return err
			}

			up := recording.NewS3Uploader(client, opts.bucket, opts.prefix)
			for _, file := range args {
				key, err := up.UploadFile(cmd.Context(), file)
				if err != nil {
					return err
				}
				g.out.success("Uploaded %s to %s", file, up.URI(key))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.bucket, "bucket", "b", "", "Bucket (default recording.s3Bucket)")
	cmd.Flags().StringVarP(&opts.prefix, "prefix", "p", "", "Key prefix (default recording.s3Prefix)")
	cmd.Flags().StringVar(&opts.region, "region", "", "Region (default $AWS_REGION, then us-east-1)")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "Custom endpoint URL")
	cmd.Flags().BoolVar(&opts.pathStyle, "path-style", false, "Use path-style addressing")
	return cmd
}

// newS3Client builds a client from the environment credentials.
func newS3Client(opts uploadOptions) (*s3.Client, error) {
	region := opts.region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	creds := aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "environment",
	}
	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, errors.New("B061").WithDetail("no AWS credentials in the environment").
			WithSuggestion("Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY")
	}

	s3opts := s3.Options{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return creds, nil
		}),
		UsePathStyle: opts.pathStyle,
	}
	if opts.endpoint != "" {
		s3opts.BaseEndpoint = aws.String(opts.endpoint)
	}
	return s3.New(s3opts), nil
}
