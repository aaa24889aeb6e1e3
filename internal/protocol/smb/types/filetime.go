package types

import "time"

// filetimeUnixDiff is the number of 100-nanosecond intervals between the
// Windows FILETIME epoch (1601-01-01 UTC) and the Unix epoch (1970-01-01 UTC).
const filetimeUnixDiff = 116444736000000000

// TimeToFiletime converts a Go time.Time to a Windows FILETIME: the count of
// 100-nanosecond intervals since 1601-01-01 UTC, as used in every FSCC
// timestamp field (creation/last-access/last-write/change time).
func TimeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100) + filetimeUnixDiff
}

// FiletimeToTime converts a Windows FILETIME back to a Go time.Time. A zero
// or pre-epoch value maps to the zero time.Time, matching the convention
// that 0 means "not set" in FSCC timestamp fields.
func FiletimeToTime(ft uint64) time.Time {
	if ft == 0 || ft < filetimeUnixDiff {
		return time.Time{}
	}
	nsec := int64(ft-filetimeUnixDiff) * 100
	return time.Unix(0, nsec).UTC()
}

// NowFiletime returns the current time as a Windows FILETIME.
func NowFiletime() uint64 {
	return TimeToFiletime(time.Now())
}
