// confwire-dump decodes an encoded settings update request and prints its
// fields. Useful when inspecting captured cluster traffic or on-disk
// request payloads.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/unkn0wn-root/confwire"
	"github.com/unkn0wn-root/confwire/cluster"
	"github.com/unkn0wn-root/confwire/streamio"
)

func main() {
	var (
		in       = flag.String("in", "-", "encoded request file (- = stdin)")
		framed   = flag.Bool("framed", false, "input starts with a length-prefixed frame header")
		maxFrame = flag.Int("maxframe", 4<<20, "max frame bytes when -framed")
	)
	flag.Parse()

	raw, err := readInput(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}
	if *framed {
		raw, err = streamio.ReadFrame(bytes.NewReader(raw), *maxFrame)
		if err != nil {
			log.Fatalf("read frame: %v", err)
		}
	}

	req, err := cluster.UnmarshalSettingsUpdateRequest(raw)
	if err != nil {
		log.Fatalf("decode request: %v", err)
	}
	dump(req)
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func dump(req *cluster.SettingsUpdateRequest) {
	tenant := req.TenantName()
	if tenant == "" {
		tenant = "<default>"
	}
	fmt.Printf("tenant:        %s\n", tenant)
	fmt.Printf("ack timeout:   %s\n", req.AckTimeout().Round(time.Millisecond))
	fmt.Printf("coord timeout: %s\n", req.CoordTimeout().Round(time.Millisecond))
	dumpOverlay("transient", req.TransientSettings())
	dumpOverlay("persistent", req.PersistentSettings())
	dumpRemovals("transient remove", req.TransientSettingsToRemove())
	dumpRemovals("persistent remove", req.PersistentSettingsToRemove())
}

func dumpOverlay(scope string, s *confwire.Settings) {
	fmt.Printf("%s (%d):\n", scope, s.Len())
	for _, k := range s.Names() {
		v, _ := s.Get(k)
		fmt.Printf("  %s = %s\n", k, v)
	}
}

func dumpRemovals(scope string, set map[string]struct{}) {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Printf("%s (%d):\n", scope, len(names))
	for _, n := range names {
		fmt.Printf("  %s\n", n)
	}
}
