package winsec

import (
	"fmt"
	"unsafe"
)

// sidAndAttributes and tokenGroups mirror the SID_AND_ATTRIBUTES and
// TOKEN_GROUPS layouts.
type sidAndAttributes struct {
	sid        uintptr
	attributes uint32
}

type tokenGroups struct {
	count  uint32
	groups [1]sidAndAttributes
}

// TokenGroupsBytes returns the number of bytes a TOKEN_GROUPS list with
// count entries occupies.
func TokenGroupsBytes(count uint32) uint64 {
	return uint64(unsafe.Offsetof(tokenGroups{}.groups)) +
		uint64(count)*uint64(unsafe.Sizeof(sidAndAttributes{}))
}

// CheckGroupCount verifies that a group list reporting count entries fits in
// a buffer of size bytes.
func CheckGroupCount(count, size uint32) error {
	if count == 0 {
		return ErrEmptyTokenGroups
	}
	if need := TokenGroupsBytes(count); need > uint64(size) {
		return fmt.Errorf("%w: %d groups need %d bytes, buffer holds %d",
			ErrGroupCountExceedsBuffer, count, need, size)
	}
	return nil
}
