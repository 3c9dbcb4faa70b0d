package cluster

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/unkn0wn-root/confwire"
)

func TestRequestRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		build func() *SettingsUpdateRequest
	}{
		{"empty", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest()
		}},
		{"transient only", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetTransientSettings(confwire.FromMap(map[string]string{"a": "1", "b": "2"}))
		}},
		{"persistent only", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetPersistentSettings(confwire.FromMap(map[string]string{"x.y": "z"}))
		}},
		{"removals only", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetTransientSettingsToRemove("a", "b").
				SetPersistentSettingsToRemove("c")
		}},
		{"everything", func() *SettingsUpdateRequest {
			r := NewSettingsUpdateRequest().
				SetTenantName("acme").
				SetTransientSettings(confwire.FromMap(map[string]string{"t": "1"})).
				SetPersistentSettings(confwire.FromMap(map[string]string{"p": "2"})).
				SetTransientSettingsToRemove("t.old").
				SetPersistentSettingsToRemove("p.old", "p.older")
			r.SetAckTimeout(90 * time.Second)
			r.SetCoordTimeout(10 * time.Second)
			return r
		}},
		{"overlap between overlay and removal set", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetTransientSettings(confwire.FromMap(map[string]string{"k": "v"})).
				SetTransientSettingsToRemove("k")
		}},
	}

	for _, tc := range cases {
		want := tc.build()
		raw, err := want.Marshal()
		if err != nil {
			t.Fatalf("%s: Marshal: %v", tc.name, err)
		}
		got, err := UnmarshalSettingsUpdateRequest(raw)
		if err != nil {
			t.Fatalf("%s: Unmarshal: %v", tc.name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: round-trip mismatch:\n got %#v\nwant %#v", tc.name, got, want)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		build   func() *SettingsUpdateRequest
		wantErr bool
	}{
		{"all empty", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest()
		}, true},
		{"tenant alone does not count", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().SetTenantName("acme")
		}, true},
		{"transient settings", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetTransientSettings(confwire.FromMap(map[string]string{"a": "1"}))
		}, false},
		{"persistent settings", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetPersistentSettings(confwire.FromMap(map[string]string{"a": "1"}))
		}, false},
		{"transient removal", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().
				SetTransientSettingsToRemove("cluster.routing.allocation.enable")
		}, false},
		{"persistent removal", func() *SettingsUpdateRequest {
			return NewSettingsUpdateRequest().SetPersistentSettingsToRemove("a")
		}, false},
	}

	for _, tc := range cases {
		err := tc.build().Validate()
		if tc.wantErr {
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("%s: got %v want ValidationError", tc.name, err)
			}
			if len(verr.Errors) != 1 || verr.Errors[0] != "no settings to update" {
				t.Fatalf("%s: wrong message: %v", tc.name, verr.Errors)
			}
		} else if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestTenantNameRoundTrip(t *testing.T) {
	unset := NewSettingsUpdateRequest().SetTransientSettingsToRemove("a")
	raw, _ := unset.Marshal()
	got, err := UnmarshalSettingsUpdateRequest(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.TenantName() != "" {
		t.Fatalf("unset tenant decoded as %q", got.TenantName())
	}

	set := NewSettingsUpdateRequest().SetTenantName("acme").SetTransientSettingsToRemove("a")
	raw, _ = set.Marshal()
	got, err = UnmarshalSettingsUpdateRequest(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.TenantName() != "acme" {
		t.Fatalf("tenant: got %q want %q", got.TenantName(), "acme")
	}
}

func TestOverlayIndependence(t *testing.T) {
	req := NewSettingsUpdateRequest().
		SetTransientSettings(confwire.FromMap(map[string]string{"t": "1"}))
	req.SetPersistentSettings(confwire.FromMap(map[string]string{"p": "2"}))

	if v, _ := req.TransientSettings().Get("t"); v != "1" {
		t.Fatalf("persistent setter changed transient overlay")
	}
	if _, ok := req.TransientSettings().Get("p"); ok {
		t.Fatalf("persistent key leaked into transient overlay")
	}

	req.SetTransientSettings(confwire.Empty)
	if v, _ := req.PersistentSettings().Get("p"); v != "2" {
		t.Fatalf("transient setter changed persistent overlay")
	}
}

func TestRemovalSetReplaceSemantics(t *testing.T) {
	req := NewSettingsUpdateRequest().
		SetTransientSettingsToRemove("a", "b").
		SetTransientSettingsToRemove("c")

	want := map[string]struct{}{"c": {}}
	if got := req.TransientSettingsToRemove(); !reflect.DeepEqual(got, want) {
		t.Fatalf("removal set not replaced: got %v want %v", got, want)
	}
}

func TestSetSettingsSource(t *testing.T) {
	req := NewSettingsUpdateRequest()
	if err := req.SetTransientSettingsSource(`{"cluster": {"name": "prod"}}`); err != nil {
		t.Fatalf("SetTransientSettingsSource: %v", err)
	}
	if v, _ := req.TransientSettings().Get("cluster.name"); v != "prod" {
		t.Fatalf("source overlay: got %q want %q", v, "prod")
	}
}

func TestSetSettingsMapGenerationError(t *testing.T) {
	req := NewSettingsUpdateRequest().
		SetTransientSettings(confwire.FromMap(map[string]string{"keep": "me"}))

	err := req.SetTransientSettingsMap(map[string]any{"bad": func() {}})
	var gerr *confwire.GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("got %v want GenerationError", err)
	}
	if gerr.Unwrap() == nil {
		t.Fatalf("GenerationError lost its cause")
	}
	if v, _ := req.TransientSettings().Get("keep"); v != "me" {
		t.Fatalf("failed set mutated the previous overlay")
	}
}

func TestSetSettingsMap(t *testing.T) {
	req := NewSettingsUpdateRequest()
	err := req.SetPersistentSettingsMap(map[string]any{
		"indices": map[string]any{"recovery": map[string]any{"max_bytes_per_sec": "40mb"}},
	})
	if err != nil {
		t.Fatalf("SetPersistentSettingsMap: %v", err)
	}
	if v, _ := req.PersistentSettings().Get("indices.recovery.max_bytes_per_sec"); v != "40mb" {
		t.Fatalf("map overlay: got %q", v)
	}
}

func TestDecodeTruncated(t *testing.T) {
	req := NewSettingsUpdateRequest().
		SetTenantName("acme").
		SetTransientSettings(confwire.FromMap(map[string]string{"t": "1"})).
		SetPersistentSettings(confwire.FromMap(map[string]string{"persistent.key": "value"})).
		SetTransientSettingsToRemove("r1").
		SetPersistentSettingsToRemove("r2")
	raw, err := req.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// every strict prefix must fail: the layout has no optional tail
	for cut := 0; cut < len(raw); cut++ {
		got, err := UnmarshalSettingsUpdateRequest(raw[:cut])
		if err == nil {
			t.Fatalf("cut=%d: decode of truncated input succeeded", cut)
		}
		var derr *DecodeError
		if !errors.As(err, &derr) {
			t.Fatalf("cut=%d: got %T want DecodeError", cut, err)
		}
		if got != nil {
			t.Fatalf("cut=%d: partial instance escaped", cut)
		}
	}
}

func TestWireLayoutGolden(t *testing.T) {
	req := NewSettingsUpdateRequest().
		SetTenantName("t").
		SetTransientSettings(confwire.FromMap(map[string]string{"a": "b"})).
		SetTransientSettingsToRemove("c")
	req.SetCoordTimeout(1)
	req.SetAckTimeout(2)

	// coord timeout zigzag(1ns)=0x02; tenant marker+"t"; transient one
	// pair a=b; persistent empty; ack timeout zigzag(2ns)=0x04; transient
	// removals ["c"]; persistent removals empty.
	want := []byte{
		0x02,
		0x01, 0x01, 't',
		0x01, 0x01, 'a', 0x01, 'b',
		0x00,
		0x04,
		0x01, 0x01, 'c',
		0x00,
	}
	raw, err := req.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(raw, want) {
		t.Fatalf("wire layout drifted:\n got % x\nwant % x", raw, want)
	}
}

func TestEncodeDeterministicAcrossInsertionOrder(t *testing.T) {
	a := NewSettingsUpdateRequest().
		SetTransientSettings(confwire.NewBuilder().Put("x", "1").Put("y", "2").Build()).
		SetPersistentSettingsToRemove("p1", "p2", "p3")
	b := NewSettingsUpdateRequest().
		SetTransientSettings(confwire.NewBuilder().Put("y", "2").Put("x", "1").Build()).
		SetPersistentSettingsToRemove("p3", "p1", "p2")

	ra, _ := a.Marshal()
	rb, _ := b.Marshal()
	if !bytes.Equal(ra, rb) {
		t.Fatalf("encoding depends on insertion order:\n%v\n%v", ra, rb)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	want := &SettingsUpdateResponse{
		Acknowledged: true,
		Persistent:   confwire.FromMap(map[string]string{"p": "1"}),
		Transient:    confwire.Empty,
	}
	raw, err := want.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := UnmarshalSettingsUpdateResponse(raw)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Acknowledged != want.Acknowledged ||
		!reflect.DeepEqual(got.Persistent.AsMap(), want.Persistent.AsMap()) ||
		!reflect.DeepEqual(got.Transient.AsMap(), want.Transient.AsMap()) {
		t.Fatalf("round-trip mismatch: got %+v want %+v", got, want)
	}
}
