package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.in = in
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Save(t *testing.T) {
	fake := &fakeS3{}
	store := newS3Store(fake, S3Config{
		Bucket:   "briefs",
		Region:   "us-east-1",
		Endpoint: "http://127.0.0.1:9000/",
		Prefix:   "uploads/",
	})

	url, err := store.Save(context.Background(), "abc.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9000/briefs/uploads/abc.png", url)
	assert.Equal(t, "briefs", aws.ToString(fake.in.Bucket))
	assert.Equal(t, "uploads/abc.png", aws.ToString(fake.in.Key))
	assert.Equal(t, "image/png", aws.ToString(fake.in.ContentType))
	assert.Equal(t, "png-bytes", fake.body)
}

func TestS3Store_PublicURL(t *testing.T) {
	store := newS3Store(&fakeS3{}, S3Config{Bucket: "b", Region: "eu-west-1"})
	url, err := store.Save(context.Background(), "x.pdf", "application/pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/x.pdf", url)

	store = newS3Store(&fakeS3{}, S3Config{Bucket: "b", PublicURL: "https://cdn.example.com/"})
	url, err = store.Save(context.Background(), "x.pdf", "application/pdf", strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/x.pdf", url)
}

func TestS3Store_Error(t *testing.T) {
	store := newS3Store(&fakeS3{err: errors.New("access denied")}, S3Config{Bucket: "b"})

	_, err := store.Save(context.Background(), "x.pdf", "application/pdf", strings.NewReader(""))
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3Store_RequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewS3Store(t *testing.T) {
	store, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "briefs",
		Region:    "us-east-1",
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/briefs", store.publicURL)
}
