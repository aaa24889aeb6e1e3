package smbserver

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/coredoor/smbd/internal/auth/ntlm"
	"github.com/coredoor/smbd/internal/auth/ntlmauth"
	"github.com/coredoor/smbd/internal/logger"
	"github.com/coredoor/smbd/internal/protocol/smb/share"
	"github.com/coredoor/smbd/internal/protocol/smb/share/memshare"
	"github.com/coredoor/smbd/internal/protocol/smb/types"
)

// defaultShares builds the share set every freshly started server
// publishes: the configured disk share (optionally seeded from a host
// directory) and the IPC$ administrative pipe share SRVSVC enumeration and
// named-pipe opens ride on.
func defaultShares(cfg Config) map[string]share.SharedResource {
	disk := memshare.NewDiskShare(cfg.ShareName)
	if cfg.SharePath != "" {
		seedFromDisk(disk, cfg.SharePath)
	}

	ipc := memshare.NewPipeShare("IPC$")

	// Keyed lower-case to match TreeConnectRequest.ShareName()'s
	// case-insensitive lookup.
	return map[string]share.SharedResource{
		strings.ToLower(cfg.ShareName): disk,
		"ipc$":                         ipc,
	}
}

// seedFromDisk walks root and mirrors every file/directory it finds into
// the in-memory share, so a freshly started server can expose real host
// content without the fixture gaining its own filesystem backend.
func seedFromDisk(disk *memshare.Share, root string) {
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			disk.PutDirectory(rel)
			return nil
		}
		content, readErr := os.ReadFile(p)
		if readErr != nil {
			logger.Warn("smbserver: failed to seed file", "path", p, "error", readErr)
			return nil
		}
		disk.PutFile(rel, content, types.FileAttributeNormal)
		return nil
	})
	if err != nil {
		logger.Warn("smbserver: failed to walk share path", "path", root, "error", err)
	}
}

// defaultCredentialStore returns the NTLM identity backing every
// SESSION_SETUP this server accepts: an optional single account from
// SMB_USERNAME/SMB_PASSWORD, with guest logons always accepted, no
// external directory service per spec §4.4's NTLM-only scope.
func defaultCredentialStore() ntlmauth.CredentialStore {
	var accounts []ntlmauth.Account
	if user, ok := os.LookupEnv("SMB_USERNAME"); ok && user != "" {
		password := os.Getenv("SMB_PASSWORD")
		accounts = append(accounts, ntlmauth.Account{
			Username: user,
			Domain:   os.Getenv("SMB_DOMAIN"),
			NTHash:   ntlm.ComputeNTHash(password),
			Enabled:  true,
		})
		logger.Info("smbserver: configured NTLM account", "username", user)
	}
	return ntlmauth.NewStaticCredentialStore(accounts, true)
}

// authProviderFactory builds the per-handshake AuthProviderFactory a
// Handler needs: a fresh ntlmauth.Conversation for every pending
// SESSION_SETUP, since NTLM's challenge/response exchange is itself
// stateful and must not be shared across concurrent logons.
func authProviderFactory(store ntlmauth.CredentialStore, serverName string) func() share.AuthProvider {
	return func() share.AuthProvider {
		return ntlmauth.NewConversation(store, serverName)
	}
}
