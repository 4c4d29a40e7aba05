package vault

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/reverie-app/reverie-api/internal/config"
	"github.com/reverie-app/reverie-api/internal/pathsec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilesystemVault_RoundTrip(t *testing.T) {
	t.Parallel()

	v, err := NewFilesystemVault(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("archive bytes")
	require.NoError(t, v.Put(ctx, "user-1/backup.tar.gz", bytes.NewReader(content), int64(len(content))))

	reader, err := v.Get(ctx, "user-1/backup.tar.gz")
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, content, got)

	require.NoError(t, v.Delete(ctx, "user-1/backup.tar.gz"))
	_, err = v.Get(ctx, "user-1/backup.tar.gz")
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestFilesystemVault_GetMissing(t *testing.T) {
	t.Parallel()

	v, err := NewFilesystemVault(t.TempDir())
	require.NoError(t, err)

	_, err = v.Get(context.Background(), "nope.tar.gz")
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestFilesystemVault_RejectsTraversalKey(t *testing.T) {
	t.Parallel()

	v, err := NewFilesystemVault(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	err = v.Put(ctx, "../../etc/passwd", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, pathsec.ErrOutsideRoot)

	_, err = v.Get(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, pathsec.ErrOutsideRoot)
}

func TestFilesystemVault_DeleteMissingIsNoError(t *testing.T) {
	t.Parallel()

	v, err := NewFilesystemVault(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, v.Delete(context.Background(), "absent.tar.gz"))
}

// fakeS3 records calls and serves objects from a map.
type fakeS3 struct {
	objects map[string][]byte
	deleted []string
}

func (f *fakeS3) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[aws.ToString(input.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(input.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(input.Key))
	f.deleted = append(f.deleted, aws.ToString(input.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Vault_RoundTrip(t *testing.T) {
	t.Parallel()

	fake := &fakeS3{}
	v := &S3Vault{client: fake, bucket: "backups"}

	ctx := context.Background()
	content := []byte("s3 archive")
	require.NoError(t, v.Put(ctx, "user-2/backup.tar.gz", bytes.NewReader(content), int64(len(content))))

	reader, err := v.Get(ctx, "user-2/backup.tar.gz")
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, v.Delete(ctx, "user-2/backup.tar.gz"))
	assert.Equal(t, []string{"user-2/backup.tar.gz"}, fake.deleted)

	_, err = v.Get(ctx, "user-2/backup.tar.gz")
	assert.ErrorIs(t, err, ErrArchiveNotFound)
}

func TestNew_SelectsBackend(t *testing.T) {
	t.Parallel()

	v, err := New(config.BackupConfig{Vault: "none"})
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = New(config.BackupConfig{Vault: "filesystem", VaultPath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FilesystemVault{}, v)

	_, err = New(config.BackupConfig{Vault: "s3"})
	assert.Error(t, err) // missing credentials

	_, err = New(config.BackupConfig{Vault: "tape"})
	assert.Error(t, err)
}
