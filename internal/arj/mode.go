package arj

import (
	"fmt"
	"io/fs"
	"strings"
)

// The mode field holds st_mode on UNIX and NeXT hosts, DOS attributes everywhere else.
const (
	unixTypeMask = 0o170000
	unixSetuid   = 0o4000
	unixSetgid   = 0o2000
	unixSticky   = 0o1000

	dosReadOnly = 0x01
	dosSubdir   = 0x10
)

var unixTypes = map[uint16]fs.FileMode{
	0o140000: fs.ModeSocket,
	0o120000: fs.ModeSymlink,
	0o060000: fs.ModeDevice,
	0o040000: fs.ModeDir,
	0o020000: fs.ModeDevice | fs.ModeCharDevice,
	0o010000: fs.ModeNamedPipe,
}

// hostMode interprets a mode field written on the given host.
func hostMode(host uint8, m uint16) fs.FileMode {
	switch host {
	case UNIX, NEXT:
		mode := fs.FileMode(m&0o777) | unixTypes[m&unixTypeMask]
		for bit, flag := range map[uint16]fs.FileMode{
			unixSetuid: fs.ModeSetuid,
			unixSetgid: fs.ModeSetgid,
			unixSticky: fs.ModeSticky,
		} {
			if m&bit != 0 {
				mode |= flag
			}
		}
		return mode
	default:
		mode := fs.FileMode(0o666)
		if m&dosSubdir != 0 {
			mode = fs.ModeDir | 0o777
		}
		if m&dosReadOnly != 0 {
			mode &^= 0o222
		}
		return mode
	}
}

// unicode percent-escapes names that are not valid UTF-8,
// which is most DOS code page names with accented letters.
func unicode(s string) string {
	if !strings.ContainsRune(s, 0xfffd) && strings.ToValidUTF8(s, "�") == s {
		return s
	}
	var b strings.Builder
	for _, c := range []byte(s) {
		if c < 128 && c != '%' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "%%%02x", c)
		}
	}
	return b.String()
}
