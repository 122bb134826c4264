// Package fileid identifies an archive file on disk,
// so that work derived from its contents can be cached across runs.
package fileid

import (
	"encoding/hex"
	"errors"
)

// ID changes whenever the file is replaced or modified.
type ID [16]byte

var ErrNotOS = errors.New("not an OS file")

func (id ID) String() string { return hex.EncodeToString(id[:]) }
