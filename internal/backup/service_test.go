package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetops/fleetcast/internal/database"
	fleettest "github.com/fleetops/fleetcast/internal/testing"
)

// fakeStore records uploads and serves a canned object listing.
type fakeStore struct {
	uploaded map[string][]byte
	objects  []ObjectInfo
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploaded: make(map[string][]byte)}
}

func (f *fakeStore) Upload(_ context.Context, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.uploaded[key] = data
	f.objects = append(f.objects, ObjectInfo{Key: key, SizeBytes: int64(len(data))})
	return nil
}

func (f *fakeStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	for _, obj := range f.objects {
		if strings.HasPrefix(obj.Key, prefix) {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func archiveEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	gzipReader, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer gzipReader.Close()

	entries := make(map[string][]byte)
	tarReader := tar.NewReader(gzipReader)
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		content, err := io.ReadAll(tarReader)
		require.NoError(t, err)
		entries[header.Name] = content
	}
	return entries
}

func TestCreateAndUploadBackup(t *testing.T) {
	fleetDB, cleanupFleet := fleettest.NewTestDB(t, "fleet")
	defer cleanupFleet()
	cacheDB, cleanupCache := fleettest.NewTestDB(t, "cache")
	defer cleanupCache()

	store := newFakeStore()
	svc := NewService(store, []*database.DB{fleetDB, cacheDB}, t.TempDir(), zerolog.Nop())

	err := svc.CreateAndUploadBackup(context.Background())
	require.NoError(t, err)

	require.Len(t, store.uploaded, 1)

	var archiveName string
	var archiveData []byte
	for key, data := range store.uploaded {
		archiveName = key
		archiveData = data
	}

	assert.True(t, strings.HasPrefix(archiveName, "fleetcast-backup-"))
	assert.True(t, strings.HasSuffix(archiveName, ".tar.gz"))

	entries := archiveEntries(t, archiveData)
	assert.Contains(t, entries, "fleet.db")
	assert.Contains(t, entries, "cache.db")
	require.Contains(t, entries, "backup-metadata.json")

	var metadata Metadata
	require.NoError(t, json.Unmarshal(entries["backup-metadata.json"], &metadata))
	require.Len(t, metadata.Databases, 2)
	assert.Equal(t, "fleet", metadata.Databases[0].Name)
	assert.Equal(t, "cache", metadata.Databases[1].Name)
	for _, db := range metadata.Databases {
		assert.Equal(t, int64(len(entries[db.Filename])), db.SizeBytes)
		assert.True(t, strings.HasPrefix(db.Checksum, "sha256:"))
	}
}

func TestListBackupsParsesAndSorts(t *testing.T) {
	store := newFakeStore()
	store.objects = []ObjectInfo{
		{Key: "fleetcast-backup-2026-08-01-020000.tar.gz", SizeBytes: 100},
		{Key: "fleetcast-backup-2026-08-20-020000.tar.gz", SizeBytes: 300},
		{Key: "fleetcast-backup-2026-08-10-020000.tar.gz", SizeBytes: 200},
		{Key: "fleetcast-backup-not-a-timestamp.tar.gz", SizeBytes: 50},
		{Key: "fleetcast-backup-2026-08-05-020000.txt", SizeBytes: 10},
	}

	svc := NewService(store, nil, t.TempDir(), zerolog.Nop())

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 3)

	assert.Equal(t, "fleetcast-backup-2026-08-20-020000.tar.gz", backups[0].Filename)
	assert.Equal(t, "fleetcast-backup-2026-08-10-020000.tar.gz", backups[1].Filename)
	assert.Equal(t, "fleetcast-backup-2026-08-01-020000.tar.gz", backups[2].Filename)
	assert.Equal(t, int64(300), backups[0].SizeBytes)
	assert.Equal(t, time.Date(2026, 8, 20, 2, 0, 0, 0, time.UTC), backups[0].Timestamp)
}

func TestRotateOldBackupsKeepsNewest(t *testing.T) {
	store := newFakeStore()
	for day := 1; day <= 6; day++ {
		store.objects = append(store.objects, ObjectInfo{
			Key: fmt.Sprintf("fleetcast-backup-2026-08-%02d-020000.tar.gz", day),
		})
	}

	svc := NewService(store, nil, t.TempDir(), zerolog.Nop())

	err := svc.RotateOldBackups(context.Background(), 4)
	require.NoError(t, err)

	// Newest four (days 6,5,4,3) survive; days 2 and 1 go.
	require.Len(t, store.deleted, 2)
	assert.Contains(t, store.deleted, "fleetcast-backup-2026-08-01-020000.tar.gz")
	assert.Contains(t, store.deleted, "fleetcast-backup-2026-08-02-020000.tar.gz")
}

func TestRotateOldBackupsEnforcesMinimum(t *testing.T) {
	store := newFakeStore()
	for day := 1; day <= 5; day++ {
		store.objects = append(store.objects, ObjectInfo{
			Key: fmt.Sprintf("fleetcast-backup-2026-08-%02d-020000.tar.gz", day),
		})
	}

	svc := NewService(store, nil, t.TempDir(), zerolog.Nop())

	// Asking to retain 1 still keeps the minimum of three.
	err := svc.RotateOldBackups(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, store.deleted, 2)
}

func TestRotateOldBackupsZeroRetentionKeepsEverything(t *testing.T) {
	store := newFakeStore()
	for day := 1; day <= 5; day++ {
		store.objects = append(store.objects, ObjectInfo{
			Key: fmt.Sprintf("fleetcast-backup-2026-08-%02d-020000.tar.gz", day),
		})
	}

	svc := NewService(store, nil, t.TempDir(), zerolog.Nop())

	require.NoError(t, svc.RotateOldBackups(context.Background(), 0))
	assert.Empty(t, store.deleted)
}
