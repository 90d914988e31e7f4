package aws

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNewS3NotConfigured(t *testing.T) {
	viper.Set("aws.s3.bucket", "")
	t.Cleanup(viper.Reset)

	c, err := NewS3(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Nil(t, c)
	assert.False(t, c.Configured())
}

func TestNilClient(t *testing.T) {
	var c *S3Client
	ctx := context.Background()

	assert.ErrorIs(t, c.Put(ctx, "k", strings.NewReader("x"), 1, "text/plain"), ErrNotConfigured)
	assert.ErrorIs(t, c.Delete(ctx, "k"), ErrNotConfigured)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.List(ctx, "p/")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestURL(t *testing.T) {
	c := &S3Client{Bucket: aws.String("pulse"), region: "eu-west-1"}
	assert.Equal(t, "https://pulse.s3.eu-west-1.amazonaws.com/uploads/a.png", c.URL("uploads/a.png"))

	c.endpoint = "http://localhost:9000/"
	assert.Equal(t, "http://localhost:9000/pulse/uploads/a.png", c.URL("uploads/a.png"))
}
