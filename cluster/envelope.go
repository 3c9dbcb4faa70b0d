// Package cluster defines the messages a coordinator exchanges with the
// rest of the cluster to update runtime settings, and the store that
// applies them on the receiving side. Message layouts are byte-stable;
// see package streamio for the primitives.
package cluster

import (
	"time"

	"github.com/unkn0wn-root/confwire/streamio"
)

const (
	// DefaultAckTimeout bounds how long a sender waits for node
	// acknowledgements. Transported data only; nothing here enforces it.
	DefaultAckTimeout = 30 * time.Second

	// DefaultCoordTimeout bounds how long the coordinator may queue the
	// request before applying it.
	DefaultCoordTimeout = 30 * time.Second
)

// AckEnvelope carries the fields every acknowledged request shares: the
// coordinator timeout leading the wire form and the acknowledgement
// timeout each concrete request writes at its contract-defined position.
// Concrete requests embed it rather than subclassing anything.
type AckEnvelope struct {
	ackTimeout   time.Duration
	coordTimeout time.Duration
}

func newAckEnvelope() AckEnvelope {
	return AckEnvelope{ackTimeout: DefaultAckTimeout, coordTimeout: DefaultCoordTimeout}
}

// AckTimeout returns how long the sender waits for acknowledgements.
func (e *AckEnvelope) AckTimeout() time.Duration { return e.ackTimeout }

func (e *AckEnvelope) SetAckTimeout(d time.Duration) { e.ackTimeout = d }

// CoordTimeout returns the coordinator queueing timeout.
func (e *AckEnvelope) CoordTimeout() time.Duration { return e.coordTimeout }

func (e *AckEnvelope) SetCoordTimeout(d time.Duration) { e.coordTimeout = d }

// encodeHeader writes the leading envelope fields. The ack timeout is not
// part of the header; concrete requests call encodeAckTimeout where their
// layout places it.
func (e *AckEnvelope) encodeHeader(w *streamio.Writer) {
	w.WriteDuration(e.coordTimeout)
}

func (e *AckEnvelope) decodeHeader(r *streamio.Reader) error {
	d, err := r.ReadDuration()
	if err != nil {
		return err
	}
	e.coordTimeout = d
	return nil
}

func (e *AckEnvelope) encodeAckTimeout(w *streamio.Writer) {
	w.WriteDuration(e.ackTimeout)
}

func (e *AckEnvelope) decodeAckTimeout(r *streamio.Reader) error {
	d, err := r.ReadDuration()
	if err != nil {
		return err
	}
	e.ackTimeout = d
	return nil
}
