package rpc

import (
	"bytes"
	"sync"

	"github.com/coredoor/smbd/internal/protocol/smb/share"
)

// PipeState tracks one open instance of the srvsvc named pipe: whether the
// client has completed an RPC bind, and any response bytes buffered for a
// subsequent READ.
type PipeState struct {
	mu         sync.Mutex
	Name       string
	Bound      bool
	Handler    *SRVSVCHandler
	ReadBuffer *bytes.Buffer
}

func NewPipeState(name string, handler *SRVSVCHandler) *PipeState {
	return &PipeState{
		Name:       name,
		Handler:    handler,
		ReadBuffer: bytes.NewBuffer(nil),
	}
}

// ProcessWrite handles a WRITE (client -> server): a Bind PDU completes the
// handshake, a Request PDU is dispatched to the handler once bound. Any
// response is buffered for the client's next READ.
func (p *PipeState) ProcessWrite(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(data) < HeaderSize {
		return nil
	}

	hdr, err := ParseHeader(data)
	if err != nil {
		return err
	}

	var response []byte

	switch hdr.PacketType {
	case PDUBind:
		bindReq, err := ParseBindRequest(data)
		if err != nil {
			return err
		}
		response = p.Handler.HandleBind(bindReq)
		p.Bound = true

	case PDURequest:
		if !p.Bound {
			return nil
		}
		rpcReq, err := ParseRequest(data)
		if err != nil {
			return err
		}
		response = p.Handler.HandleRequest(rpcReq)
	}

	if len(response) > 0 {
		p.ReadBuffer.Write(response)
	}

	return nil
}

// ProcessRead drains up to maxLen buffered response bytes (server -> client).
func (p *PipeState) ProcessRead(maxLen int) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ReadBuffer.Len() == 0 {
		return nil
	}
	if maxLen <= 0 {
		return nil
	}
	const maxReadSize = 65536
	if maxLen > maxReadSize {
		maxLen = maxReadSize
	}

	data := make([]byte, maxLen)
	n, _ := p.ReadBuffer.Read(data)
	return data[:n]
}

// HasData reports whether a buffered response awaits a READ.
func (p *PipeState) HasData() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ReadBuffer.Len() > 0
}

// Transact performs a combined write+read, the path Windows clients use via
// FSCTL_PIPE_TRANSCEIVE.
func (p *PipeState) Transact(inputData []byte, maxOutput int) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(inputData) < HeaderSize {
		return nil, nil
	}

	hdr, err := ParseHeader(inputData)
	if err != nil {
		return nil, err
	}

	var response []byte

	switch hdr.PacketType {
	case PDUBind:
		bindReq, err := ParseBindRequest(inputData)
		if err != nil {
			return nil, err
		}
		response = p.Handler.HandleBind(bindReq)
		p.Bound = true

	case PDURequest:
		if !p.Bound {
			return nil, nil
		}
		rpcReq, err := ParseRequest(inputData)
		if err != nil {
			return nil, err
		}
		response = p.Handler.HandleRequest(rpcReq)
	}

	if len(response) > maxOutput && maxOutput > 0 {
		response = response[:maxOutput]
	}

	return response, nil
}

// PipeManager owns one PipeState per open named-pipe handle and keeps the
// share list each SRVSVCHandler enumerates up to date.
type PipeManager struct {
	mu     sync.RWMutex
	pipes  map[[16]byte]*PipeState
	shares []ShareInfo1
}

func NewPipeManager() *PipeManager {
	return &PipeManager{
		pipes:  make(map[[16]byte]*PipeState),
		shares: []ShareInfo1{},
	}
}

// SetShares replaces the list NetrShareEnum reports, typically called once
// at startup from the configured SharedResource set.
func (pm *PipeManager) SetShares(shares []ShareInfo1) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.shares = shares
}

// SetSharedResources is a convenience wrapper deriving the SHARE_INFO_1 list
// directly from the server's live SharedResource set.
func (pm *PipeManager) SetSharedResources(resources []share.SharedResource) {
	pm.SetShares(ShareInfoFromResources(resources))
}

// CreatePipe opens a new named-pipe instance keyed by its SMB FileId.
func (pm *PipeManager) CreatePipe(fileID [16]byte, pipeName string) *PipeState {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	handler := NewSRVSVCHandler(pm.shares)
	pipe := NewPipeState(pipeName, handler)
	pm.pipes[fileID] = pipe
	return pipe
}

func (pm *PipeManager) GetPipe(fileID [16]byte) *PipeState {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.pipes[fileID]
}

func (pm *PipeManager) ClosePipe(fileID [16]byte) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.pipes, fileID)
}

// IsSupportedPipe reports whether name (already lowercased by the caller)
// refers to a pipe this package implements.
func IsSupportedPipe(name string) bool {
	switch name {
	case "srvsvc", "\\srvsvc", "\\pipe\\srvsvc":
		return true
	default:
		return false
	}
}
