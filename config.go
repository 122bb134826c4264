package main

import (
	"math"
	"os"
	"strconv"
)

// Settings read from the environment once at startup
var (
	cacheBytes  = calcCacheBytes()
	indexDBDir  = os.Getenv("ARJFS_INDEXDB")  // empty to disable
	flatten     = envBool("ARJFS_FLATTEN")    // index members by base name
	fallbackDir = os.Getenv("ARJFS_FALLBACK") // cat reads loose files from here instead
)

func calcCacheBytes() int {
	if e := os.Getenv("ARJFS_CACHEMB"); e != "" {
		f, err := strconv.ParseFloat(e, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			panic("malformed ARJFS_CACHEMB environment variable, should be a number of megabytes: " + e)
		}
		return int(f * 1024 * 1024)
	}
	return 64 * 1024 * 1024 // fall back on 64MiB
}

func envBool(name string) bool {
	e := os.Getenv(name)
	if e == "" {
		return false
	}
	b, err := strconv.ParseBool(e)
	if err != nil {
		panic("malformed " + name + " environment variable, should be true or false: " + e)
	}
	return b
}
