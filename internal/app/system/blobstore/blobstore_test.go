package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"notes.pdf", "notes.pdf"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\my file.txt`, "my_file.txt"},
		{"...", "file"},
		{"résumé.doc", "r_sum_.doc"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), tc.in)
	}
}

func TestResourceKey(t *testing.T) {
	assert.Equal(t, "groups/g1/r1-slides.pdf", ResourceKey("g1", "r1", "slides.pdf"))
}

func TestLocal_RoundTrip(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/files/")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Put(ctx, "groups/g1/r1-a.txt", strings.NewReader("hello"), 5, "text/plain"))
	require.NoError(t, l.Put(ctx, "groups/g1/r2-b.txt", strings.NewReader("world"), 5, "text/plain"))

	b, err := os.ReadFile(filepath.Join(root, "groups", "g1", "r1-a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	u, err := l.PresignedURL(ctx, "groups/g1/r1-a.txt", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "/files/groups/g1/r1-a.txt", u)

	require.NoError(t, l.Delete(ctx, "groups/g1/r1-a.txt"))
	require.NoError(t, l.Delete(ctx, "groups/g1/r1-a.txt"), "deleting a missing file is not an error")

	n, err := l.DeletePrefix(ctx, GroupPrefix("g1"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = os.Stat(filepath.Join(root, "groups", "g1"))
	assert.True(t, os.IsNotExist(err))

	n, err = l.DeletePrefix(ctx, GroupPrefix("missing"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	l, err := NewLocal(t.TempDir(), "/files")
	require.NoError(t, err)

	for _, key := range []string{"", "/abs", "../outside", "a/../../b"} {
		err := l.Put(context.Background(), key, strings.NewReader("x"), 1, "")
		assert.True(t, errors.Is(err, ErrInvalidKey), "key %q: got %v", key, err)
	}
}

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	listed  []string
	deleted []string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	for _, o := range in.Delete.Objects {
		f.deleted = append(f.deleted, aws.ToString(o.Key))
	}
	return &s3.DeleteObjectsOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	var out []s3types.Object
	for _, k := range f.listed {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			out = append(out, s3types.Object{Key: aws.String(k)})
		}
	}
	return &s3.ListObjectsV2Output{Contents: out, IsTruncated: aws.Bool(false)}, nil
}

type fakePresigner struct{ expires time.Duration }

func (f *fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var opts s3.PresignOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	f.expires = opts.Expires
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3.amazonaws.com/" + aws.ToString(in.Key) + "?X-Amz-Signature=x"}, nil
}

func TestS3_PrefixAndPresign(t *testing.T) {
	api := &fakeS3{}
	ps := &fakePresigner{}
	s := NewS3WithAPI(api, ps, "bucket", "uploads/")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "groups/g1/r1-a.pdf", strings.NewReader("x"), 1, "application/pdf"))
	require.Len(t, api.puts, 1)
	assert.Equal(t, "uploads/groups/g1/r1-a.pdf", aws.ToString(api.puts[0].Key))
	assert.Equal(t, "application/pdf", aws.ToString(api.puts[0].ContentType))

	u, err := s.PresignedURL(ctx, "groups/g1/r1-a.pdf", 0)
	require.NoError(t, err)
	assert.Contains(t, u, "uploads/groups/g1/r1-a.pdf")
	assert.Equal(t, DefaultURLExpiry, ps.expires)
}

func TestS3_DeletePrefix(t *testing.T) {
	api := &fakeS3{listed: []string{
		"uploads/groups/g1/r1-a.pdf",
		"uploads/groups/g1/r2-b.pdf",
		"uploads/groups/g10/r3-c.pdf",
	}}
	s := NewS3WithAPI(api, &fakePresigner{}, "bucket", "uploads/")

	n, err := s.DeletePrefix(context.Background(), GroupPrefix("g1"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"uploads/groups/g1/r1-a.pdf", "uploads/groups/g1/r2-b.pdf"}, api.deleted)
}
