// Command sharedhashmapctl is a small inspection and scripting tool for
// sharedhashmap files: create one, dump summary stats, or get/put a single
// string key/value pair.
//
// Grounded on theflywheel-phash/example/main.go and cespare-kvcache's
// bench/example programs for the shape of a minimal flag-parsed entry
// point: one subcommand word followed by a small flag.FlagSet per
// subcommand, no CLI framework.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gostonefire/sharedhashmap"
)

// stringCodec is the trivial KeyCodec/ValueCodec this CLI uses: strings
// stored as their raw UTF-8 bytes, with no escaping or framing of its own
// since sharedhashmap's own codec already length-prefixes every field.
type stringCodec struct{}

func (stringCodec) EncodeKey(k string) ([]byte, error)   { return []byte(k), nil }
func (stringCodec) DecodeKey(b []byte) (string, error)   { return string(b), nil }
func (stringCodec) EncodeValue(v string) ([]byte, error) { return []byte(v), nil }
func (stringCodec) DecodeValue(b []byte) (string, error) { return string(b), nil }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "stat":
		err = runStat(os.Args[2:])
	case "get":
		err = runGet(os.Args[2:])
	case "put":
		err = runPut(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "sharedhashmapctl:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: sharedhashmapctl <create|stat|get|put> [flags]")
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	path := fs.String("path", "", "path to the map file to create")
	segments := fs.Int64("segments", 16, "number of segments")
	expectedKeys := fs.Int64("expected-keys-per-segment", 1024, "expected keys per segment")
	maxEntrySize := fs.Int64("max-entry-size", 256, "maximum encoded entry size in bytes")
	replication := fs.Bool("replication", false, "enable replication origin stamping")
	nodeID := fs.Int("node-id", 0, "local node id, 0-255, used when replication is enabled")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("create: -path is required")
	}

	cfg := sharedhashmap.Config{
		Path:                   *path,
		SegmentCount:           *segments,
		ExpectedKeysPerSegment: *expectedKeys,
		MaxEntrySize:           *maxEntrySize,
		ReplicationEnabled:     *replication,
		LocalNodeID:            byte(*nodeID),
	}

	m, err := sharedhashmap.Create[string, string](cfg, stringCodec{}, stringCodec{})
	if err != nil {
		return err
	}
	defer m.Close()

	fmt.Printf("created %s with %d segments\n", *path, *segments)
	return nil
}

func runStat(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	path := fs.String("path", "", "path to the map file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("stat: -path is required")
	}

	m, err := sharedhashmap.Open[string, string](sharedhashmap.Config{Path: *path}, stringCodec{}, stringCodec{})
	if err != nil {
		return err
	}
	defer m.Close()

	size, err := m.Size()
	if err != nil {
		return err
	}
	fmt.Printf("path:    %s\n", *path)
	fmt.Printf("entries: %d\n", size)
	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	path := fs.String("path", "", "path to the map file")
	key := fs.String("key", "", "key to look up")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *key == "" {
		return fmt.Errorf("get: -path and -key are required")
	}

	m, err := sharedhashmap.Open[string, string](sharedhashmap.Config{Path: *path}, stringCodec{}, stringCodec{})
	if err != nil {
		return err
	}
	defer m.Close()

	value, ok, err := m.Get(*key)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("(not found)")
		return nil
	}
	fmt.Println(value)
	return nil
}

func runPut(args []string) error {
	fs := flag.NewFlagSet("put", flag.ExitOnError)
	path := fs.String("path", "", "path to the map file")
	key := fs.String("key", "", "key to write")
	value := fs.String("value", "", "value to write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" || *key == "" {
		return fmt.Errorf("put: -path and -key are required")
	}

	m, err := sharedhashmap.Open[string, string](sharedhashmap.Config{Path: *path}, stringCodec{}, stringCodec{})
	if err != nil {
		return err
	}
	defer m.Close()

	if _, _, err := m.Put(*key, *value); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}
