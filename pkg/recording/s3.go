package recording

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/nativebridge/internal/errors"
)

// PutObjectAPI is the part of *s3.Client the uploader needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader ships finished recordings to a bucket.
type S3Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
}

// NewS3Uploader creates an uploader writing under prefix in bucket.
func NewS3Uploader(client PutObjectAPI, bucket, prefix string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Key returns the object key used for a recording named name.
func (u *S3Uploader) Key(name string) string {
	return path.Join(u.prefix, name)
}

// Upload stores body under name and returns the object key.
func (u *S3Uploader) Upload(ctx context.Context, name string, body io.Reader) (string, error) {
	key := u.Key(name)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"upload-time": u.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", errors.New("B061").Wrap(err).WithDetailf("upload s3://%s/%s", u.bucket, key)
	}
	return key, nil
}

// UploadFile uploads the recording at file under its base name.
func (u *S3Uploader) UploadFile(ctx context.Context, file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", errors.New("B061").Wrap(err)
	}
	defer f.Close()
	return u.Upload(ctx, filepath.Base(file), f)
}

// URI returns the s3:// URI of key.
func (u *S3Uploader) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", u.bucket, key)
}
