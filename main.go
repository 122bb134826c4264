// Copyright (c) Elliot Nunn
// Licensed under the MIT license

// Command arjfs lists, extracts and serves the members of ARJ archives.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"slices"

	"github.com/elliotnunn/arjfs/internal/archive"
	"github.com/elliotnunn/arjfs/internal/indexcache"
	"github.com/elliotnunn/arjfs/internal/membercache"
)

const usage = `usage:
  arjfs list [-l] ARCHIVE... [-- PATTERN]
  arjfs cat ARCHIVE... -- MEMBER
  arjfs serve ADDR ARCHIVE...

environment:
  ARJFS_CACHEMB   megabytes of decompressed members to keep (default 64)
  ARJFS_INDEXDB   directory to remember archive scans in
  ARJFS_FLATTEN   index members by base name only
  ARJFS_FALLBACK  directory that cat reads loose files from instead
`

var errUsage = errors.New("bad arguments")

func main() {
	err := run(os.Stdout, os.Args[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "arjfs:", err)
		os.Exit(1)
	}
}

func run(w io.Writer, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "list":
		return cmdList(w, args[1:])
	case "cat":
		return cmdCat(w, args[1:])
	case "serve":
		return cmdServe(args[1:])
	default:
		return errUsage
	}
}

// splitArgs separates the arguments before and after "--".
func splitArgs(args []string) (before, after []string) {
	i := slices.Index(args, "--")
	if i < 0 {
		return args, nil
	}
	return args[:i], args[i+1:]
}

// openIndex registers every archive, with a persistent scan cache if configured.
func openIndex(archives []string) (*archive.Index, func(), error) {
	opts := archive.Options{Flatten: flatten}
	if indexDBDir != "" {
		c, err := indexcache.Open(indexDBDir)
		if err != nil {
			return nil, nil, err
		}
		opts.Cache = c
	}
	ix := archive.NewIndex(opts)
	cleanup := func() {
		ix.Close()
		if opts.Cache != nil {
			if err := opts.Cache.Close(); err != nil {
				slog.Warn("indexCacheCloseError", "err", err)
			}
		}
	}

	for _, a := range archives {
		if err := ix.Register(a); err != nil {
			cleanup()
			return nil, nil, err
		}
	}
	return ix, cleanup, nil
}

func cmdList(w io.Writer, args []string) error {
	long := len(args) > 0 && args[0] == "-l"
	if long {
		args = args[1:]
	}
	archives, rest := splitArgs(args)
	if len(archives) == 0 || len(rest) > 1 {
		return errUsage
	}
	pattern := "**"
	if len(rest) == 1 {
		pattern = rest[0]
	}

	ix, cleanup, err := openIndex(archives)
	if err != nil {
		return err
	}
	defer cleanup()

	if long {
		for _, a := range ix.Archives() {
			fmt.Fprintf(w, "# %s start=%d members=%d", a.Path, a.Start, a.Members)
			if a.Filter != "" {
				fmt.Fprintf(w, " filter=%s", a.Filter)
			}
			if a.Comment != "" {
				fmt.Fprintf(w, " comment=%q", a.Comment)
			}
			fmt.Fprintln(w)
		}
		return dumpFS(w, archive.NewFS(ix, nil), pattern)
	}

	names, err := ix.Glob(pattern)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(w, n)
	}
	return nil
}

func cmdCat(w io.Writer, args []string) error {
	archives, rest := splitArgs(args)
	if len(rest) != 1 || (len(archives) == 0 && fallbackDir == "") {
		return errUsage
	}

	ix, cleanup, err := openIndex(archives)
	if err != nil {
		return err
	}
	defer cleanup()

	f := archive.New(ix)
	f.Fallback = fallbackDir
	m, err := f.Open(rest[0])
	if err != nil {
		return err
	}
	defer m.Close()
	_, err = io.Copy(w, m)
	return err
}

func cmdServe(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	addr, archives := args[0], args[1:]

	ix, cleanup, err := openIndex(archives)
	if err != nil {
		return err
	}
	defer cleanup()

	fsys := archive.NewFS(ix, membercache.New(cacheBytes))
	slog.Info("serving", "addr", addr, "archives", len(ix.Archives()))
	return http.ListenAndServe(addr, http.FileServerFS(fsys))
}
