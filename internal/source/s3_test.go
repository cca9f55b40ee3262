package source

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects  map[string][]byte
	listed   []*s3.ListObjectsV2Input
	modified time.Time
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.listed = append(f.listed, in)
	out := &s3.ListObjectsV2Output{}
	for key, body := range f.objects {
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(body))),
			LastModified: aws.Time(f.modified),
		})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.objects[aws.ToString(in.Key)]))}, nil
}

func TestS3Source(t *testing.T) {
	now := time.Date(2025, 1, 6, 2, 0, 0, 0, time.UTC)
	client := &fakeS3{
		modified: now,
		objects: map[string][]byte{
			"hr/incoming/": nil,
			"hr/incoming/Prenomina Horizontal.csv": []byte("Número\n1\n"),
		},
	}
	src := NewS3Source(client, "hr-extracts", "hr/incoming")
	ctx := context.Background()

	files, err := src.ListFiles(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Prenomina Horizontal.csv", files[0].Name)
	assert.Equal(t, now, files[0].LastModified)
	assert.Equal(t, "hr/incoming/", aws.ToString(client.listed[0].Prefix))

	data, err := src.Fetch(ctx, "Prenomina Horizontal.csv")
	require.NoError(t, err)
	assert.Equal(t, "Número\n1\n", string(data))
}
