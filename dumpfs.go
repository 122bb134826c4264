// Copyright (c) Elliot Nunn
// Licensed under the MIT license

package main

import (
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/elliotnunn/arjfs/internal/arj"
)

var methodNames = [...]string{"stored", "most", "medium", "fast", "fastest"}

// dumpFS prints the details of every file matching pattern, ignoring case.
func dumpFS(w io.Writer, fsys fs.FS, pattern string) error {
	const tfmt = "2006-01-02T15:04:05"
	pattern = strings.ToLower(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return doublestar.ErrBadPattern
	}
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, strings.ToLower(p)); !ok {
			return nil
		}
		i, err := d.Info()
		if err != nil {
			fmt.Fprintf(w, "%s\n    dump error: %s\n", p, err.Error())
			return nil
		}

		fmt.Fprintf(w, "%s\n    %v size=%d modtime=%s\n",
			p, i.Mode(), i.Size(), i.ModTime().Format(tfmt))
		if h, ok := i.Sys().(*arj.Header); ok && !h.IsDir() {
			method := fmt.Sprint(h.Method)
			if int(h.Method) < len(methodNames) {
				method = methodNames[h.Method]
			}
			fmt.Fprintf(w, "    method=%s packed=%d crc=%08x host=%d", method, h.Packed, h.FileCRC, h.HostOS)
			if h.Flags&arj.FlagGarbled != 0 {
				fmt.Fprint(w, " garbled")
			}
			if h.Comment != "" {
				fmt.Fprintf(w, " comment=%q", h.Comment)
			}
			fmt.Fprintln(w)
		}
		return nil
	})
}
