package store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := FSStore{Root: dir}
	key := "figures/src_3_mom0hi.png"

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, key, []byte("png!")))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, "png!", string(data))

	info, err := os.Stat(filepath.Join(dir, key))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	// No temp files left lying around
	entries, _ := os.ReadDir(filepath.Join(dir, "figures"))
	assert.Len(t, entries, 1)

	abs := filepath.Join(dir, "abs.png")
	require.NoError(t, FSStore{Root: "/elsewhere"}.Write(ctx, abs, []byte("x")))
	ok, _ = s.Exists(ctx, abs)
	assert.True(t, ok)
}

type fakeS3 struct {
	s3iface.S3API
	sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut bool
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) HeadObjectWithContext(ctx aws.Context, in *s3.HeadObjectInput, opts ...request.Option) (*s3.HeadObjectOutput, error) {
	f.Lock()
	defer f.Unlock()
	if _, ok := f.objects[*in.Bucket+"/"+*in.Key]; !ok {
		return nil, awserr.New("NotFound", "Not Found", nil)
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, opts ...request.Option) (*s3.PutObjectOutput, error) {
	f.Lock()
	defer f.Unlock()
	if f.failPut {
		return nil, awserr.New("AccessDenied", "Access Denied", nil)
	}
	data, _ := io.ReadAll(in.Body)
	f.objects[*in.Bucket+"/"+*in.Key] = data
	if in.ContentType != nil {
		f.types[*in.Bucket+"/"+*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	api := newFakeS3()
	s := NewS3Store(api, "gallery", "run1/")

	ok, err := s.Exists(ctx, "/data/figures/src_1_pv.png")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Write(ctx, "/data/figures/src_1_pv.png", []byte("pv")))
	assert.Equal(t, []byte("pv"), api.objects["gallery/run1/data/figures/src_1_pv.png"])
	assert.Equal(t, "image/png", api.types["gallery/run1/data/figures/src_1_pv.png"])

	ok, err = s.Exists(ctx, "/data/figures/src_1_pv.png")
	require.NoError(t, err)
	assert.True(t, ok)

	api.failPut = true
	err = s.Write(ctx, "x.png", nil)
	var aerr awserr.Error
	assert.True(t, errors.As(err, &aerr))
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a/b.png", objectKey("", "/a/b.png"))
	assert.Equal(t, "p/a/b.png", objectKey("p", "a/b.png"))
	assert.Equal(t, "p/a/b.png", objectKey("p/", "/a/b.png"))
}
