package smbserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSharesKeyedForCaseInsensitiveLookup(t *testing.T) {
	cfg := Config{ShareName: "Data"}
	shares := defaultShares(cfg)

	_, ok := shares["data"]
	require.True(t, ok, "share must be keyed lower-case to match TreeConnectRequest.ShareName()'s lookup")

	ipc, ok := shares["ipc$"]
	require.True(t, ok)
	assert.Equal(t, "IPC$", ipc.Name())
}

func TestDefaultCredentialStoreWithoutAccountIsGuestOnly(t *testing.T) {
	store := defaultCredentialStore()
	assert.True(t, store.GuestEnabled())
	_, _, found := store.Lookup("nobody", "")
	assert.False(t, found)
}

func TestDefaultCredentialStoreConfiguredAccount(t *testing.T) {
	t.Setenv("SMB_USERNAME", "alice")
	t.Setenv("SMB_PASSWORD", "hunter2")
	t.Setenv("SMB_DOMAIN", "WORKGROUP")

	store := defaultCredentialStore()
	_, enabled, found := store.Lookup("alice", "WORKGROUP")
	assert.True(t, found)
	assert.True(t, enabled)
}

func TestAuthProviderFactoryBuildsFreshProviderEachCall(t *testing.T) {
	store := defaultCredentialStore()
	factory := authProviderFactory(store, "TESTSERVER")

	a := factory()
	b := factory()
	assert.NotSame(t, a, b)
}
