package handlers

import (
	"path/filepath"

	"github.com/coredoor/smbd/internal/protocol/smb/types"
	v2 "github.com/coredoor/smbd/internal/protocol/smb/v2"
)

// QueryInfo handles SMB2 QUERY_INFO for the InfoTypeFile namespace; the
// filesystem/security/quota namespaces have no configuration surface on
// this server and are reported unsupported.
func (h *Handler) QueryInfo(req *v2.QueryInfoRequest) *HandlerResult {
	if req.InfoType != types.InfoTypeFile {
		return NewErrorResult(types.StatusNotSupported)
	}

	f, ok := h.GetOpenFile(req.FileID)
	if !ok {
		return NewErrorResult(types.StatusFileClosed)
	}
	if f.Handle == nil {
		return NewErrorResult(types.StatusInvalidParameter)
	}
	meta, err := f.Handle.Metadata()
	if err != nil {
		return NewErrorResult(types.StatusUnsuccessful)
	}

	times := v2.CreateTimes{
		Creation:   toFILETIME(meta.Times.Created),
		LastAccess: toFILETIME(meta.Times.LastAccess),
		LastWrite:  toFILETIME(meta.Times.LastWrite),
		Change:     toFILETIME(meta.Times.Change),
	}

	var data []byte
	switch req.FileInfoClass {
	case types.FileBasicInformation:
		data = v2.BasicInformation{Times: times, FileAttributes: meta.Attributes}.Encode()
	case types.FileStandardInformation:
		data = v2.StandardInformation{
			AllocationSize: meta.AllocationSize,
			EndOfFile:      meta.EndOfFile,
			NumberOfLinks:  1,
			DeletePending:  f.DeletePending,
			IsDirectory:    f.IsDirectory,
		}.Encode()
	case types.FileInternalInformation:
		data = v2.InternalInformation{IndexNumber: childFileIDHash(f.ShareName, f.Path)}.Encode()
	case types.FileEaInformation:
		data = v2.EaInformation{}.Encode()
	case types.FileAccessInformation:
		data = v2.AccessInformation{AccessFlags: f.DesiredAccess}.Encode()
	case types.FilePositionInformation:
		data = v2.PositionInformation{}.Encode()
	case types.FileModeInformation:
		data = v2.ModeInformation{}.Encode()
	case types.FileAlignmentInformation:
		data = v2.AlignmentInformation{}.Encode()
	case types.FileNameInformation:
		data = v2.NameInformation{FileName: filepath.Base(f.Path)}.Encode()
	case types.FileNetworkOpenInformation:
		data = v2.NetworkOpenInformation{
			Times:          times,
			AllocationSize: meta.AllocationSize,
			EndOfFile:      meta.EndOfFile,
			FileAttributes: meta.Attributes,
		}.Encode()
	case types.FileAllInformation:
		data = v2.AllInformation{
			Basic:    v2.BasicInformation{Times: times, FileAttributes: meta.Attributes},
			Standard: v2.StandardInformation{AllocationSize: meta.AllocationSize, EndOfFile: meta.EndOfFile, NumberOfLinks: 1, DeletePending: f.DeletePending, IsDirectory: f.IsDirectory},
			Internal: v2.InternalInformation{IndexNumber: childFileIDHash(f.ShareName, f.Path)},
			Access:   v2.AccessInformation{AccessFlags: f.DesiredAccess},
			Name:     v2.NameInformation{FileName: filepath.Base(f.Path)},
		}.Encode()
	default:
		return NewErrorResult(types.StatusNotSupported)
	}

	resp := &v2.QueryInfoResponse{Data: data}
	return NewResult(types.StatusSuccess, resp.Encode())
}
