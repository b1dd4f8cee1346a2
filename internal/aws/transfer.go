package aws

import (
	"context"
	"io"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dorkyrobot/cftp/internal/store"
)

// OpenObject streams the object body in chunkSize reads.
func (c *Conn) OpenObject(ctx context.Context, container, key string, chunkSize int) (io.ReadCloser, int64, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: awssdk.String(container),
		Key:    awssdk.String(key),
	})
	if err != nil {
		return nil, 0, wrapError("OpenObject", container, key, err)
	}
	return store.NewChunkReader(out.Body, chunkSize), awssdk.ToInt64(out.ContentLength), nil
}
