package objectstore

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
)

const deleteWaitTimeout = 30 * time.Second

// S3Client is the subset of the AWS SDK v2 S3 client the adapter needs,
// narrowed for testability.
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// S3Store is the production Store backed by AWS S3 (or an S3-compatible
// endpoint), using multipart upload with an integrity checksum for writes
// (spec §6).
type S3Store struct {
	client   S3Client
	uploader *manager.Uploader
}

// NewS3Store builds an S3Store from an AWS SDK v2 S3 client.
func NewS3Store(client *s3.Client) *S3Store {
	return &S3Store{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = 8 * 1024 * 1024
		}),
	}
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyS3Error(err, "get object")
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(out.Body); err != nil {
		return nil, apperrors.InternalError(err, "failed to read object body")
	}
	return buf.Bytes(), nil
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, body []byte, contentType string, allowOverwrite bool) error {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(body),
		ContentType:       aws.String(contentType),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	}
	if !allowOverwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return classifyS3Error(err, "put object")
	}
	return nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return classifyS3Error(err, "delete object")
	}

	return s.waitUntilAbsent(ctx, bucket, key)
}

// waitUntilAbsent polls HeadObject until it returns NotFound or the timeout
// elapses, per spec §6's post-delete wait-until-absent requirement.
func (s *S3Store) waitUntilAbsent(ctx context.Context, bucket, key string) error {
	deadline := time.Now().Add(deleteWaitTimeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil && isNotFound(err) {
			return nil
		}
		if time.Now().After(deadline) {
			return apperrors.InternalError(nil, "timed out waiting for object deletion to propagate")
		}

		select {
		case <-ctx.Done():
			return apperrors.InternalError(ctx.Err(), "context cancelled while waiting for object deletion")
		case <-ticker.C:
		}
	}
}

func isNotFound(err error) bool {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

// classifyS3Error maps an AWS SDK v2 S3 error into the spec §7 taxonomy.
func classifyS3Error(err error, op string) error {
	var nf *types.NoSuchKey
	if errors.As(err, &nf) {
		return apperrors.ResourceNotFound(err, op+": object not found")
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return apperrors.ResourceNotFound(err, op+": object not found")
		case "PreconditionFailed":
			return apperrors.ConditionalCheckFailed(err, op+": object already exists")
		case "AccessDenied":
			return apperrors.AccessDenied(err)
		case "SlowDown", "ThrottlingException", "RequestLimitExceeded":
			return apperrors.Throttled(err, op+": request throttled")
		default:
			return apperrors.InternalError(err, op+": "+apiErr.ErrorMessage())
		}
	}

	return apperrors.Other(err, op+": unclassified object store failure")
}
