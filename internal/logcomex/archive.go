package logcomex

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PageKey identifies one raw page of a fetch.
type PageKey struct {
	Entity string
	Start  string
	End    string
	Page   int
}

// PageArchiver keeps a copy of raw upstream pages.
type PageArchiver interface {
	ArchivePage(ctx context.Context, key PageKey, body []byte) error
}

// S3PutObjectAPI is the subset of the S3 client used by S3Archiver.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver writes raw pages to
// {prefix}/{entity-slug}/{start}_{end}/page-0001.json.
type S3Archiver struct {
	client S3PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver for bucket.
func NewS3Archiver(client S3PutObjectAPI, bucket, prefix string) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}
}

// ArchivePage uploads body under the object key derived from key.
func (a *S3Archiver) ArchivePage(ctx context.Context, key PageKey, body []byte) error {
	objectKey := a.ObjectKey(key)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", a.bucket, objectKey, err)
	}
	return nil
}

// ObjectKey returns the S3 key for a page.
func (a *S3Archiver) ObjectKey(key PageKey) string {
	return path.Join(a.prefix, Slug(key.Entity), key.Start+"_"+key.End, fmt.Sprintf("page-%04d.json", key.Page))
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases name and collapses everything but letters and digits to
// single dashes.
func Slug(name string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(name), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}
