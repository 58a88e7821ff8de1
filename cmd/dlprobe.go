// Command dlprobe opens a shared library and reports which of the
// named symbols it exports.
//
// Usage:
//
//	dlprobe [flags] <library> [symbol ...]
//
// The library argument is passed to the platform loader as-is unless
// -dir is given, in which case it is treated as a base name ("crypto"
// for libcrypto.so) and located in that directory, optionally fetched
// from a GitHub release first with -fetch.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/kawai-network/dynlib"
)

var (
	dir   = flag.String("dir", "", "directory to search for the library instead of the loader path")
	fetch = flag.String("fetch", "", "owner/repo of a GitHub project to download the library from when missing")
)

func main() {
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: dlprobe [flags] <library> [symbol ...]")
	}

	name := flag.Arg(0)
	if *dir != "" {
		found := dynlib.FindLibrary(*dir, name)
		if found == "" && *fetch != "" {
			log.Printf("library %s not found in %s, downloading from %s", name, *dir, *fetch)
			d := dynlib.NewDownloader(*fetch, name, *dir)
			path, err := d.DownloadLatestWithProgress(func(complete, total int64, mbps float64, done bool) {
				if done {
					fmt.Printf("\rdownloaded %d bytes          \n", complete)
				} else {
					fmt.Printf("\r%d/%d bytes (%.1f MB/s)", complete, total, mbps)
				}
			})
			if err != nil {
				log.Fatalf("failed to download library: %v", err)
			}
			found = path
		}
		if found == "" {
			log.Fatalf("library %s not found in %s", name, *dir)
		}
		name = found
	}

	lib := dynlib.New(name)
	if err := lib.Open(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("opened %s\n", lib.Name())

	for _, sym := range flag.Args()[1:] {
		var fn dynlib.Func[func()]
		if !dynlib.Resolve(lib, sym, &fn) {
			log.Fatalf("cannot resolve %q: library not open or empty name", sym)
		}
		if fn.Resolved() {
			fmt.Printf("  %s: ok\n", sym)
		} else {
			fmt.Printf("  %s: missing\n", sym)
		}
	}

	fmt.Printf("%d symbols probed\n", lib.CacheSize())
	if !lib.CheckCache() {
		os.Exit(1)
	}
}
