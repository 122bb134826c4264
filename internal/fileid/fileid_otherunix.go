//go:build unix && !linux

package fileid

import (
	"encoding/binary"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

func Get(pathname string) (ID, error) {
	var stat unix.Stat_t
	if err := unix.Stat(pathname, &stat); err != nil {
		return ID{}, err
	}

	var id ID

	// ID = (64 bits of inode number) + (64 bits of hash of (device, mtime, size, filename))
	binary.BigEndian.PutUint64(id[:], uint64(stat.Ino))
	var h xxhash.Digest
	binary.Write(&h, binary.BigEndian, uint64(stat.Dev))
	sec, nsec := stat.Mtim.Unix()
	binary.Write(&h, binary.BigEndian, sec)
	binary.Write(&h, binary.BigEndian, nsec)
	binary.Write(&h, binary.BigEndian, stat.Size)
	h.WriteString(filepath.Base(pathname))
	binary.BigEndian.PutUint64(id[8:], h.Sum64())

	return id, nil
}
