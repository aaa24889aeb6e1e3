package share

import (
	"context"
	"testing"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceTypeString(t *testing.T) {
	assert.Equal(t, "Disk", ResourceTypeDisk.String())
	assert.Equal(t, "Pipe", ResourceTypePipe.String())
	assert.Equal(t, "Print", ResourceTypePrint.String())
	assert.Equal(t, "Unknown", ResourceType(99).String())
}

// fakeHandle and fakeResource give the interfaces a minimal exercise so a
// compile-time regression in the contract shows up as a test failure here
// rather than only where a real backend implements it.
type fakeHandle struct {
	path  string
	isDir bool
	data  []byte
}

func (h *fakeHandle) Close() error       { return nil }
func (h *fakeHandle) IsDirectory() bool  { return h.isDir }
func (h *fakeHandle) Path() string       { return h.path }
func (h *fakeHandle) Metadata() (Metadata, error) {
	return Metadata{EndOfFile: uint64(len(h.data))}, nil
}
func (h *fakeHandle) Read(offset int64, length int) ([]byte, error) {
	return h.data[offset:], nil
}
func (h *fakeHandle) Write(offset int64, data []byte) (int, error) {
	h.data = append(h.data[:offset], data...)
	return len(data), nil
}

type fakeResource struct{ name string }

func (r *fakeResource) Name() string                { return r.name }
func (r *fakeResource) ResourceType() ResourceType   { return ResourceTypeDisk }
func (r *fakeResource) Flags() ShareFlags            { return 0 }
func (r *fakeResource) HandleCreate(path string, disposition types.CreateDisposition, isDirectory bool) (ResourceHandle, error) {
	return &fakeHandle{path: path, isDir: isDirectory}, nil
}
func (r *fakeResource) ConnectAllowed(user string) bool            { return user != "blocked" }
func (r *fakeResource) ResourcePerms(user string) types.AccessMask { return 0xFFFF }

func TestSharedResourceInterfaceSatisfiedByFake(t *testing.T) {
	var r SharedResource = &fakeResource{name: "share1"}
	assert.Equal(t, "share1", r.Name())
	assert.True(t, r.ConnectAllowed("alice"))
	assert.False(t, r.ConnectAllowed("blocked"))

	h, err := r.HandleCreate("foo.txt", types.FileCreate, false)
	require.NoError(t, err)
	assert.False(t, h.IsDirectory())
}

type fakeSecurityContext struct {
	sessionKey []byte
	userName   string
}

func (c *fakeSecurityContext) SessionKey() []byte { return c.sessionKey }
func (c *fakeSecurityContext) UserName() string   { return c.userName }

type fakeAuthProvider struct{}

func (p *fakeAuthProvider) OID() []byte { return []byte{1, 2, 3} }
func (p *fakeAuthProvider) AcceptSecurityContext(ctx context.Context, inputToken []byte) (types.Status, []byte, SecurityContext, error) {
	if len(inputToken) == 0 {
		return types.StatusMoreProcessingRequired, []byte("challenge"), nil, nil
	}
	return types.StatusSuccess, nil, &fakeSecurityContext{sessionKey: []byte("key"), userName: "alice"}, nil
}

func TestAuthProviderInterfaceSatisfiedByFake(t *testing.T) {
	var p AuthProvider = &fakeAuthProvider{}

	status, out, sctx, err := p.AcceptSecurityContext(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, types.StatusMoreProcessingRequired, status)
	assert.Equal(t, []byte("challenge"), out)
	assert.Nil(t, sctx)

	status, _, sctx, err = p.AcceptSecurityContext(context.Background(), []byte("authenticate"))
	require.NoError(t, err)
	assert.Equal(t, types.StatusSuccess, status)
	require.NotNil(t, sctx)
	assert.Equal(t, "alice", sctx.UserName())
	assert.Equal(t, []byte("key"), sctx.SessionKey())
}
