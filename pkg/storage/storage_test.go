package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRejectsMissingBucket(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: DriverS3})
	assert.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "ftp", Bucket: "resumes"})
	assert.ErrorContains(t, err, "unknown driver")
}

func TestNewS3StoreWithStaticCredentials(t *testing.T) {
	store, err := New(context.Background(), Config{
		Driver:          DriverS3,
		Bucket:          "resumes",
		Region:          "us-east-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
		Endpoint:        "http://localhost:9000",
		UsePathStyle:    true,
	})
	assert.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)
}

func TestS3PresignRequiresPositiveTTL(t *testing.T) {
	store, err := NewS3Store(context.Background(), Config{
		Bucket: "resumes", Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b",
	})
	assert.NoError(t, err)
	_, err = store.PresignGet(context.Background(), "user_1/cv_abcd1234.pdf", 0)
	assert.Error(t, err)
}

func TestS3PresignGet(t *testing.T) {
	store, err := NewS3Store(context.Background(), Config{
		Bucket: "resumes", Region: "us-east-1", AccessKeyID: "a", SecretAccessKey: "b",
		Endpoint: "http://localhost:9000", UsePathStyle: true,
	})
	assert.NoError(t, err)

	u, err := store.PresignGet(context.Background(), "user_1/cv_abcd1234.pdf", time.Minute)
	assert.NoError(t, err)
	assert.Contains(t, u, "/resumes/user_1/cv_abcd1234.pdf")
	assert.Contains(t, u, "X-Amz-Expires=60")
}
