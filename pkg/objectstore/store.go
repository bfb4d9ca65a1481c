// Package objectstore implements the whitelist blob store (spec §4, component
// A): an S3-shaped bucket holding one CSV per whitelist name, addressed by
// `<name>.csv`, with overwrite-forbidden enforced server-side and a
// post-delete wait-until-absent guarantee.
package objectstore

import (
	"context"
	"regexp"

	apperrors "github.com/chainsafe/whitelist-merkle-service/pkg/app/errors"
)

// bucketNamePattern and the prefix/suffix checks below implement spec §6's
// S3 bucket-naming validation.
var bucketNamePattern = regexp.MustCompile(`^[0-9a-z][0-9a-z-]{1,61}[0-9a-z]$`)

var forbiddenBucketPrefixes = []string{"xn--", "sthree-", "sthree-configurator", "amzn-s3-demo-"}
var forbiddenBucketSuffixes = []string{"-s3alias", "--ol-s3", ".mrap", "--x-s3"}

// objectKeyPattern and maxObjectKeyLen implement spec §6's key validation:
// 1-1024 chars from the allowed punctuation set. The length bound is checked
// separately because Go's regexp caps repeat counts at 1000.
var objectKeyPattern = regexp.MustCompile(`^[0-9A-Za-z!\-_.'()]+$`)

const maxObjectKeyLen = 1024

const contentTypeCSV = "text/csv"

// Store is the object-store adapter surface used by the orchestrator and
// read path (spec §4, component A). All methods return *apperrors.ServiceError
// on failure.
type Store interface {
	// Get retrieves the object at key in bucket. Returns a
	// KindResourceNotFound error if it doesn't exist.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Put writes body at key in bucket with the given content type. If
	// allowOverwrite is false, the write is conditioned on the key not
	// already existing and fails with a KindConditionalCheckFailed error if it does.
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, allowOverwrite bool) error
	// Delete removes the object at key in bucket and blocks until a
	// subsequent Get would observe it absent, or the wait times out.
	Delete(ctx context.Context, bucket, key string) error
}

// ValidateBucketName applies spec §6's bucket-naming rules.
func ValidateBucketName(bucket string) error {
	if !bucketNamePattern.MatchString(bucket) {
		return apperrors.Validation(nil, "bucket name fails syntax validation")
	}
	for _, p := range forbiddenBucketPrefixes {
		if hasPrefix(bucket, p) {
			return apperrors.Validation(nil, "bucket name uses a reserved prefix")
		}
	}
	for _, s := range forbiddenBucketSuffixes {
		if hasSuffix(bucket, s) {
			return apperrors.Validation(nil, "bucket name uses a reserved suffix")
		}
	}
	return nil
}

// ValidateKey applies spec §6's object-key validation.
func ValidateKey(key string) error {
	if len(key) > maxObjectKeyLen || !objectKeyPattern.MatchString(key) {
		return apperrors.Validation(nil, "object key fails syntax validation")
	}
	return nil
}

// WhitelistKey returns the storage key for a whitelist name's CSV blob.
func WhitelistKey(whitelistName string) string {
	return whitelistName + ".csv"
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
