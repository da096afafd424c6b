package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

func TestFSStoreSaveAndRemove(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root, nil)
	ctx := context.Background()

	key := Key{Namespace: NamespaceOrgs, OwnerUUID: "org_abc", Category: "logos", Filename: "logo.png"}
	name, err := store.Save(ctx, key, strings.NewReader("image-bytes"), ImageFormats)
	require.NoError(t, err)
	require.Equal(t, "logo.png", name)

	stored := filepath.Join(root, "content", "orgs", "org_abc", "logos", "logo.png")
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(data))

	require.NoError(t, store.Remove(ctx, key))
	_, err = os.Stat(stored)
	require.True(t, os.IsNotExist(err))

	// Removing twice is not an error.
	require.NoError(t, store.Remove(ctx, key))
}

func TestFSStoreRejectsDisallowedFormat(t *testing.T) {
	store := NewFSStore(t.TempDir(), nil)
	key := Key{Namespace: NamespaceUsers, OwnerUUID: "user_x", Category: "avatars", Filename: "payload.exe"}
	_, err := store.Save(context.Background(), key, strings.NewReader("x"), ImageFormats)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestFSStoreRejectsPathEscape(t *testing.T) {
	store := NewFSStore(t.TempDir(), nil)
	key := Key{Namespace: NamespaceUsers, OwnerUUID: "user_x", Category: "avatars", Filename: "../../escape.png"}
	_, err := store.Save(context.Background(), key, strings.NewReader("x"), ImageFormats)
	require.Error(t, err)
}

func TestFSStoreRemoveOwner(t *testing.T) {
	root := t.TempDir()
	store := NewFSStore(root, nil)
	ctx := context.Background()

	for _, filename := range []string{"a.png", "b.jpg"} {
		_, err := store.Save(ctx, Key{Namespace: NamespaceOrgs, OwnerUUID: "org_abc", Category: "thumbnails", Filename: filename}, strings.NewReader("x"), ImageFormats)
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, Key{Namespace: NamespaceOrgs, OwnerUUID: "org_other", Category: "thumbnails", Filename: "keep.png"}, strings.NewReader("x"), ImageFormats)
	require.NoError(t, err)

	require.NoError(t, store.RemoveOwner(ctx, NamespaceOrgs, "org_abc"))

	_, err = os.Stat(filepath.Join(root, "content", "orgs", "org_abc"))
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(root, "content", "orgs", "org_other", "thumbnails", "keep.png"))
	require.NoError(t, err)
}
