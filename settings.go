// Package confwire models cluster settings updates and their byte-stable
// wire form. A Settings value is a flat overlay of dotted keys; the cluster
// subpackage ships overlays between nodes, streamio defines the stream
// primitives both build on.
package confwire

import (
	"encoding/binary"
	"sort"

	xxhash "github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/confwire/streamio"
)

// Settings is an immutable overlay of dotted setting keys to string values.
// Build instances with FromMap or a Builder; the zero value behaves as empty.
type Settings struct {
	kv map[string]string
}

// Empty is the canonical "no changes" overlay.
var Empty = &Settings{kv: map[string]string{}}

// FromMap copies m into a new overlay, detaching it from the caller.
func FromMap(m map[string]string) *Settings {
	if len(m) == 0 {
		return Empty
	}
	kv := make(map[string]string, len(m))
	for k, v := range m {
		kv[k] = v
	}
	return &Settings{kv: kv}
}

// Get returns the value for key and whether it is present.
func (s *Settings) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.kv[key]
	return v, ok
}

func (s *Settings) Len() int {
	if s == nil {
		return 0
	}
	return len(s.kv)
}

func (s *Settings) IsEmpty() bool { return s.Len() == 0 }

// Names returns all keys in sorted order. Sorted iteration keeps the wire
// encoding deterministic across nodes.
func (s *Settings) Names() []string {
	if s == nil || len(s.kv) == 0 {
		return nil
	}
	names := make([]string, 0, len(s.kv))
	for k := range s.kv {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// AsMap returns a copy of the overlay contents.
func (s *Settings) AsMap() map[string]string {
	out := make(map[string]string, s.Len())
	if s != nil {
		for k, v := range s.kv {
			out[k] = v
		}
	}
	return out
}

// Digest hashes all pairs in sorted order with length framing. Stable
// across processes; used to detect overlay changes cheaply.
func (s *Settings) Digest() uint64 {
	d := xxhash.New()
	var lp [4]byte
	for _, k := range s.Names() {
		binary.BigEndian.PutUint32(lp[:], uint32(len(k)))
		_, _ = d.Write(lp[:])
		_, _ = d.WriteString(k)
		v := s.kv[k]
		binary.BigEndian.PutUint32(lp[:], uint32(len(v)))
		_, _ = d.Write(lp[:])
		_, _ = d.WriteString(v)
	}
	return d.Sum64()
}

// Encode writes the overlay as a pair count followed by key/value strings
// in sorted key order.
func (s *Settings) Encode(w *streamio.Writer) {
	names := s.Names()
	w.WriteVInt(uint64(len(names)))
	for _, k := range names {
		w.WriteString(k)
		w.WriteString(s.kv[k])
	}
}

// ReadSettings decodes one overlay from r.
func ReadSettings(r *streamio.Reader) (*Settings, error) {
	n, err := r.ReadVInt()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return Empty, nil
	}
	// each pair needs at least two length bytes; a count beyond that is a
	// corrupt prefix, reject before allocating.
	if n > uint64(r.Remaining())/2 {
		return nil, streamio.ErrLengthOverflow
	}
	kv := make(map[string]string, n)
	for i := uint64(0); i < n; i++ {
		k, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		kv[k] = v
	}
	return &Settings{kv: kv}, nil
}
