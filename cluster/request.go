package cluster

import (
	"sort"

	"github.com/unkn0wn-root/confwire"
	"github.com/unkn0wn-root/confwire/streamio"
)

// SettingsUpdateRequest asks the coordinator to change runtime settings:
// a transient overlay dropped on the next full restart, a persistent
// overlay kept across restarts, and per-scope removal sets. A key may sit
// in an overlay and the same-scope removal set at once; the receiving
// store resolves that, not this type.
//
// An instance belongs to one logical flow (build then send, or receive
// then read). Encoding reads all fields without snapshotting them, so
// concurrent mutation can tear the wire form.
type SettingsUpdateRequest struct {
	AckEnvelope

	tenantName       string
	transient        *confwire.Settings
	persistent       *confwire.Settings
	transientRemove  map[string]struct{}
	persistentRemove map[string]struct{}
}

// NewSettingsUpdateRequest returns an empty request with default timeouts.
func NewSettingsUpdateRequest() *SettingsUpdateRequest {
	return &SettingsUpdateRequest{
		AckEnvelope:      newAckEnvelope(),
		transient:        confwire.Empty,
		persistent:       confwire.Empty,
		transientRemove:  make(map[string]struct{}),
		persistentRemove: make(map[string]struct{}),
	}
}

// TenantName returns the tenant the update applies to; empty means the
// default tenant.
func (req *SettingsUpdateRequest) TenantName() string { return req.tenantName }

// SetTenantName sets the tenant the update applies to. Empty unsets it.
func (req *SettingsUpdateRequest) SetTenantName(name string) *SettingsUpdateRequest {
	req.tenantName = name
	return req
}

// TransientSettings returns the live transient overlay.
func (req *SettingsUpdateRequest) TransientSettings() *confwire.Settings { return req.transient }

// PersistentSettings returns the live persistent overlay.
func (req *SettingsUpdateRequest) PersistentSettings() *confwire.Settings { return req.persistent }

// SetTransientSettings replaces the transient overlay wholesale. These
// settings do not survive a full cluster restart.
func (req *SettingsUpdateRequest) SetTransientSettings(s *confwire.Settings) *SettingsUpdateRequest {
	if s == nil {
		s = confwire.Empty
	}
	req.transient = s
	return req
}

// SetTransientSettingsBuilder freezes b and installs the result as the
// transient overlay.
func (req *SettingsUpdateRequest) SetTransientSettingsBuilder(b *confwire.Builder) *SettingsUpdateRequest {
	return req.SetTransientSettings(b.Build())
}

// SetTransientSettingsSource parses a raw JSON or YAML settings document
// into the transient overlay. The previous overlay is kept on error.
func (req *SettingsUpdateRequest) SetTransientSettingsSource(source string) error {
	s, err := parseOverlay(source)
	if err != nil {
		return err
	}
	req.transient = s
	return nil
}

// SetTransientSettingsMap renders m as a settings document and parses it
// back into the transient overlay. The previous overlay is kept on error.
func (req *SettingsUpdateRequest) SetTransientSettingsMap(m map[string]any) error {
	doc, err := mapOverlay(m)
	if err != nil {
		return err
	}
	return req.SetTransientSettingsSource(doc)
}

// SetPersistentSettings replaces the persistent overlay wholesale. These
// settings are reapplied across full cluster restarts.
func (req *SettingsUpdateRequest) SetPersistentSettings(s *confwire.Settings) *SettingsUpdateRequest {
	if s == nil {
		s = confwire.Empty
	}
	req.persistent = s
	return req
}

// SetPersistentSettingsBuilder freezes b and installs the result as the
// persistent overlay.
func (req *SettingsUpdateRequest) SetPersistentSettingsBuilder(b *confwire.Builder) *SettingsUpdateRequest {
	return req.SetPersistentSettings(b.Build())
}

// SetPersistentSettingsSource parses a raw JSON or YAML settings document
// into the persistent overlay. The previous overlay is kept on error.
func (req *SettingsUpdateRequest) SetPersistentSettingsSource(source string) error {
	s, err := parseOverlay(source)
	if err != nil {
		return err
	}
	req.persistent = s
	return nil
}

// SetPersistentSettingsMap renders m as a settings document and parses it
// back into the persistent overlay. The previous overlay is kept on error.
func (req *SettingsUpdateRequest) SetPersistentSettingsMap(m map[string]any) error {
	doc, err := mapOverlay(m)
	if err != nil {
		return err
	}
	return req.SetPersistentSettingsSource(doc)
}

// TransientSettingsToRemove returns the live transient removal set.
func (req *SettingsUpdateRequest) TransientSettingsToRemove() map[string]struct{} {
	return req.transientRemove
}

// PersistentSettingsToRemove returns the live persistent removal set.
func (req *SettingsUpdateRequest) PersistentSettingsToRemove() map[string]struct{} {
	return req.persistentRemove
}

// SetTransientSettingsToRemove replaces the transient removal set with
// names (not a union with the previous set).
func (req *SettingsUpdateRequest) SetTransientSettingsToRemove(names ...string) *SettingsUpdateRequest {
	req.transientRemove = toSet(names)
	return req
}

// SetPersistentSettingsToRemove replaces the persistent removal set with
// names (not a union with the previous set).
func (req *SettingsUpdateRequest) SetPersistentSettingsToRemove(names ...string) *SettingsUpdateRequest {
	req.persistentRemove = toSet(names)
	return req
}

// Validate reports whether the request would change anything at all. A
// request carrying no settings and no removals must not be transmitted.
func (req *SettingsUpdateRequest) Validate() error {
	var verr *ValidationError
	if req.transient.IsEmpty() && req.persistent.IsEmpty() &&
		len(req.transientRemove) == 0 && len(req.persistentRemove) == 0 {
		verr = addValidationError(verr, "no settings to update")
	}
	if verr == nil {
		return nil
	}
	return verr
}

// Encode writes the wire form. The field order is the cross-version
// contract: envelope header, tenant name, transient overlay, persistent
// overlay, ack timeout, transient removals, persistent removals.
func (req *SettingsUpdateRequest) Encode(w *streamio.Writer) {
	req.encodeHeader(w)
	w.WriteNullableString(req.tenantName)
	req.transient.Encode(w)
	req.persistent.Encode(w)
	req.encodeAckTimeout(w)
	writeRemovalSet(w, req.transientRemove)
	writeRemovalSet(w, req.persistentRemove)
}

// Marshal returns the encoded request bytes.
func (req *SettingsUpdateRequest) Marshal() ([]byte, error) {
	w := streamio.NewWriter()
	req.Encode(w)
	return w.Bytes(), nil
}

// DecodeSettingsUpdateRequest reads one request from r into a fresh
// instance. Any failure discards the partial result.
func DecodeSettingsUpdateRequest(r *streamio.Reader) (*SettingsUpdateRequest, error) {
	req := NewSettingsUpdateRequest()
	if err := req.decodeHeader(r); err != nil {
		return nil, &DecodeError{Field: "envelope", Cause: err}
	}
	name, err := r.ReadNullableString()
	if err != nil {
		return nil, &DecodeError{Field: "tenant name", Cause: err}
	}
	req.tenantName = name
	if req.transient, err = confwire.ReadSettings(r); err != nil {
		return nil, &DecodeError{Field: "transient settings", Cause: err}
	}
	if req.persistent, err = confwire.ReadSettings(r); err != nil {
		return nil, &DecodeError{Field: "persistent settings", Cause: err}
	}
	if err := req.decodeAckTimeout(r); err != nil {
		return nil, &DecodeError{Field: "ack timeout", Cause: err}
	}
	if err := readRemovalSet(r, req.transientRemove); err != nil {
		return nil, &DecodeError{Field: "transient removals", Cause: err}
	}
	if err := readRemovalSet(r, req.persistentRemove); err != nil {
		return nil, &DecodeError{Field: "persistent removals", Cause: err}
	}
	return req, nil
}

// UnmarshalSettingsUpdateRequest decodes a request from raw bytes.
// Trailing bytes are left for the caller; the stream may carry more.
func UnmarshalSettingsUpdateRequest(b []byte) (*SettingsUpdateRequest, error) {
	return DecodeSettingsUpdateRequest(streamio.NewReader(b))
}

func parseOverlay(source string) (*confwire.Settings, error) {
	b := confwire.NewBuilder()
	if err := b.LoadSource(source); err != nil {
		return nil, &confwire.GenerationError{Source: "source document", Cause: err}
	}
	return b.Build(), nil
}

func mapOverlay(m map[string]any) (string, error) {
	doc, err := confwire.MapToDocument(m)
	if err != nil {
		return "", &confwire.GenerationError{Source: "settings map", Cause: err}
	}
	return doc, nil
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// writeRemovalSet pins the element order to sorted; sets have no inherent
// order and the wire form must be deterministic.
func writeRemovalSet(w *streamio.Writer, set map[string]struct{}) {
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	w.WriteVInt(uint64(len(names)))
	for _, n := range names {
		w.WriteString(n)
	}
}

// readRemovalSet appends decoded entries into set, which must start empty.
func readRemovalSet(r *streamio.Reader, set map[string]struct{}) error {
	n, err := r.ReadVInt()
	if err != nil {
		return err
	}
	if n > uint64(r.Remaining()) {
		return streamio.ErrLengthOverflow
	}
	for i := uint64(0); i < n; i++ {
		name, err := r.ReadString()
		if err != nil {
			return err
		}
		set[name] = struct{}{}
	}
	return nil
}
