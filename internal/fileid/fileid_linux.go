package fileid

import (
	"encoding/binary"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/unix"
)

// Get uses statx to include the birth time of the file,
// which distinguishes a replaced file that reuses an inode number.
func Get(pathname string) (ID, error) {
	var stat unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, pathname, 0,
		unix.STATX_INO|unix.STATX_SIZE|unix.STATX_MTIME|unix.STATX_BTIME,
		&stat)
	if err != nil {
		return ID{}, err
	}

	var id ID

	// ID = (64 bits of inode number) + (64 bits of hash of (device, times, size, filename))
	binary.BigEndian.PutUint64(id[:], stat.Ino)
	var h xxhash.Digest
	binary.Write(&h, binary.BigEndian, [...]uint32{stat.Dev_major, stat.Dev_minor})
	binary.Write(&h, binary.BigEndian, stat.Btime.Sec)
	binary.Write(&h, binary.BigEndian, stat.Btime.Nsec)
	binary.Write(&h, binary.BigEndian, stat.Mtime.Sec)
	binary.Write(&h, binary.BigEndian, stat.Mtime.Nsec)
	binary.Write(&h, binary.BigEndian, stat.Size)
	h.WriteString(filepath.Base(pathname))
	binary.BigEndian.PutUint64(id[8:], h.Sum64())

	return id, nil
}
