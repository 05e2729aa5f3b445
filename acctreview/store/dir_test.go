package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottbrown/account-review/acctreview"
)

func TestDir_PutGet(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())

	ok, err := d.Exists(ctx, "acme/2024-03/volumes.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Put(ctx, "acme/2024-03/volumes.json", []byte(`[]`)))

	ok, err = d.Exists(ctx, "acme/2024-03/volumes.json")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := d.Get(ctx, "acme/2024-03/volumes.json")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, d.Put(ctx, "acme/2024-03/volumes.json", []byte(`[{}]`)))
	got, err = d.Get(ctx, "acme/2024-03/volumes.json")
	require.NoError(t, err)
	assert.Equal(t, `[{}]`, string(got), "put overwrites")

	_, err = os.Stat(filepath.Join(d.Root(), "acme", "2024-03", "volumes.json.tmp"))
	assert.True(t, os.IsNotExist(err), "temporary file is renamed away")
}

func TestDir_GetMissing(t *testing.T) {
	_, err := NewDir(t.TempDir()).Get(context.Background(), "acme/2024-03/none.json")
	assert.ErrorIs(t, err, acctreview.ErrNotFound)
}

func TestDir_ExistsDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	require.NoError(t, d.Put(ctx, "acme/2024-03/a.json", []byte("x")))

	ok, err := d.Exists(ctx, "acme/2024-03")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not blobs")
}

func TestDir_Path(t *testing.T) {
	d := NewDir("/var/cache/review")

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "acme/2024-03/a.json", want: filepath.Join("/var/cache/review", "acme", "2024-03", "a.json")},
		{key: "acme/./a.json", want: filepath.Join("/var/cache/review", "acme", "a.json")},
		{key: "../etc/passwd", wantErr: true},
		{key: "acme/../../etc", wantErr: true},
		{key: "/etc/passwd", wantErr: true},
		{key: "", wantErr: true},
		{key: ".", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := d.Path(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDir_RemovePrefix(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	for _, key := range []string{"acme/2024-03/a.json", "acme/2024-03/b.json", "acme/2024-04/a.json"} {
		require.NoError(t, d.Put(ctx, key, []byte("x")))
	}

	require.NoError(t, d.RemovePrefix(ctx, "acme/2024-03"))

	ok, _ := d.Exists(ctx, "acme/2024-03/a.json")
	assert.False(t, ok)
	ok, _ = d.Exists(ctx, "acme/2024-04/a.json")
	assert.True(t, ok)

	assert.NoError(t, d.RemovePrefix(ctx, "acme/2023-01"), "missing prefix is not an error")
}

func TestDir_WithCache(t *testing.T) {
	ctx := context.Background()
	d := NewDir(t.TempDir())
	cache := acctreview.NewCache(d, nil)
	calls := 0
	fetcher := acctreview.FetcherFunc(func(context.Context, string, time.Time) ([]byte, error) {
		calls++
		return []byte(`{"rows": []}`), nil
	})
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		_, err := cache.Resolve(ctx, fetcher, "rows", "acme", date, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, calls)

	require.NoError(t, cache.Invalidate(ctx, "acme", date))
	_, err := cache.Resolve(ctx, fetcher, "rows", "acme", date, false)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
