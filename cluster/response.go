package cluster

import (
	"github.com/unkn0wn-root/confwire"
	"github.com/unkn0wn-root/confwire/streamio"
)

// SettingsUpdateResponse reports whether an update was acknowledged by
// the cluster and echoes the scopes as applied.
type SettingsUpdateResponse struct {
	Acknowledged bool
	Persistent   *confwire.Settings
	Transient    *confwire.Settings
}

// Encode writes the wire form: ack marker, persistent overlay, transient
// overlay. Nil overlays encode as empty.
func (resp *SettingsUpdateResponse) Encode(w *streamio.Writer) {
	w.WriteBool(resp.Acknowledged)
	resp.Persistent.Encode(w)
	resp.Transient.Encode(w)
}

// Marshal returns the encoded response bytes.
func (resp *SettingsUpdateResponse) Marshal() ([]byte, error) {
	w := streamio.NewWriter()
	resp.Encode(w)
	return w.Bytes(), nil
}

// DecodeSettingsUpdateResponse reads one response from r into a fresh
// instance. Any failure discards the partial result.
func DecodeSettingsUpdateResponse(r *streamio.Reader) (*SettingsUpdateResponse, error) {
	resp := &SettingsUpdateResponse{}
	ack, err := r.ReadBool()
	if err != nil {
		return nil, &DecodeError{Field: "acknowledged", Cause: err}
	}
	resp.Acknowledged = ack
	if resp.Persistent, err = confwire.ReadSettings(r); err != nil {
		return nil, &DecodeError{Field: "persistent settings", Cause: err}
	}
	if resp.Transient, err = confwire.ReadSettings(r); err != nil {
		return nil, &DecodeError{Field: "transient settings", Cause: err}
	}
	return resp, nil
}

// UnmarshalSettingsUpdateResponse decodes a response from raw bytes.
func UnmarshalSettingsUpdateResponse(b []byte) (*SettingsUpdateResponse, error) {
	return DecodeSettingsUpdateResponse(streamio.NewReader(b))
}
