//go:build !unix

package fileid

func Get(pathname string) (ID, error) {
	return ID{}, ErrNotOS
}
