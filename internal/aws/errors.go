package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dorkyrobot/cftp/internal/store"
)

// wrapError converts an S3 error into a store.Error carrying the matching
// sentinel. A bare 404 means a missing bucket when no key is involved.
func wrapError(op, container, key string, err error) error {
	wrapped := &store.Error{
		Op:        op,
		Backend:   backendName,
		Container: container,
		Key:       key,
		Err:       err,
	}
	if sentinel := classify(key, err); sentinel != nil {
		wrapped.Err = fmt.Errorf("%w: %w", sentinel, err)
	}
	return wrapped
}

func classify(key string, err error) error {
	notFound := store.ErrNoSuchObject
	if key == "" {
		notFound = store.ErrNoSuchContainer
	}

	var (
		nf  *types.NotFound
		nsk *types.NoSuchKey
		nsb *types.NoSuchBucket
		ios *types.InvalidObjectState
	)
	switch {
	case errors.As(err, &nsb):
		return store.ErrNoSuchContainer
	case errors.As(err, &nsk), errors.As(err, &nf):
		return notFound
	case errors.As(err, &ios):
		return store.ErrObjectArchived
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return store.ErrNoSuchContainer
		case "NoSuchKey", "NotFound":
			return notFound
		case "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "InvalidToken":
			return store.ErrAuthenticationFailed
		case "AccessDenied", "Forbidden", "AllAccessDisabled":
			return store.ErrAccessDenied
		case "InvalidObjectState":
			return store.ErrObjectArchived
		}
		return nil
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchBucket"):
		return store.ErrNoSuchContainer
	case strings.Contains(msg, "InvalidAccessKeyId") || strings.Contains(msg, "SignatureDoesNotMatch"):
		return store.ErrAuthenticationFailed
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "403"):
		return store.ErrAccessDenied
	case strings.Contains(msg, "NotFound") || strings.Contains(msg, "404"):
		return notFound
	}
	return nil
}

// cleanETag removes the quotes S3 puts around ETags.
func cleanETag(etag string) string {
	return strings.Trim(etag, `"`)
}
