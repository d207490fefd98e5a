// Package framing implements the length-prefixed envelope used to ship a
// JSON metadata block and a binary payload in a single request body.
//
// Wire layout:
//
//	[0..4)              big-endian u32: metadata length in bytes
//	[4..4+len)          UTF-8 JSON metadata
//	[4+len..)           raw payload bytes
//
// The decoder makes no assumption about how the transport chunks the
// body: the length prefix, the metadata and the start of the payload may
// arrive split or packed together arbitrarily.
package framing

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMetadataLen bounds the metadata block. The length prefix could
// otherwise demand a 4 GiB allocation before any validation happens.
const MaxMetadataLen = 64 << 20

var (
	// ErrUnexpectedEOF is returned when the body ends before the
	// metadata block is complete.
	ErrUnexpectedEOF = errors.New("unexpected end of byte stream")

	// ErrMetadataTooLarge is returned when the length prefix exceeds
	// MaxMetadataLen.
	ErrMetadataTooLarge = errors.New("metadata block exceeds size limit")
)

// DecodeError indicates the metadata block was not valid JSON for the
// target type.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("metadata deserialization failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type state int

const (
	awaitingLength state = iota
	awaitingMetadata
	streamingPayload
	failed
)

// Decoder is a single-consumer, single-pass state machine. Call Feed
// with each chunk as it arrives; once Feed reports completion, Metadata
// holds the raw JSON block and Surplus holds any payload bytes that
// arrived in the same chunks as the envelope header.
type Decoder struct {
	st      state
	sizeBuf []byte
	metaLen int
	metaBuf []byte
	surplus []byte
}

// NewDecoder returns a decoder in the awaiting-length state.
func NewDecoder() *Decoder {
	return &Decoder{
		sizeBuf: make([]byte, 0, 4),
	}
}

// Feed advances the state machine with the next chunk. It returns true
// once the metadata boundary has been located; every byte past that
// boundary belongs to the payload and is retained in Surplus. Feeding
// after completion or after a failure is a programming error.
func (d *Decoder) Feed(chunk []byte) (bool, error) {
	switch d.st {
	case streamingPayload:
		return true, errors.New("framing: Feed called after metadata was complete")
	case failed:
		return false, errors.New("framing: Feed called after failure")
	}

	for len(chunk) > 0 {
		switch d.st {
		case awaitingLength:
			need := 4 - len(d.sizeBuf)
			take := need
			if take > len(chunk) {
				take = len(chunk)
			}
			d.sizeBuf = append(d.sizeBuf, chunk[:take]...)
			chunk = chunk[take:]

			if len(d.sizeBuf) == 4 {
				// Compare before converting: int is 32 bits on some
				// platforms and a prefix above 2^31 would wrap negative.
				n := binary.BigEndian.Uint32(d.sizeBuf)
				if n > MaxMetadataLen {
					d.st = failed
					return false, ErrMetadataTooLarge
				}
				d.metaLen = int(n)
				// Reserve exactly what the prefix promised.
				d.metaBuf = make([]byte, 0, d.metaLen)
				d.st = awaitingMetadata
			}

		case awaitingMetadata:
			need := d.metaLen - len(d.metaBuf)
			take := need
			if take > len(chunk) {
				take = len(chunk)
			}
			d.metaBuf = append(d.metaBuf, chunk[:take]...)
			chunk = chunk[take:]

			if len(d.metaBuf) == d.metaLen {
				// Ownership of the remaining bytes transfers to the
				// payload phase.
				d.surplus = append([]byte(nil), chunk...)
				d.st = streamingPayload
				return true, nil
			}
		}
	}

	// A chunk can end exactly on the length prefix of a zero-length
	// metadata block.
	if d.st == awaitingMetadata && len(d.metaBuf) == d.metaLen {
		d.surplus = nil
		d.st = streamingPayload
		return true, nil
	}

	return false, nil
}

// Metadata returns the raw metadata block. Valid only after Feed has
// reported completion.
func (d *Decoder) Metadata() []byte { return d.metaBuf }

// Surplus returns payload bytes received while parsing the envelope
// header. Valid only after Feed has reported completion.
func (d *Decoder) Surplus() []byte { return d.surplus }

// Extract drives a Decoder over body, unmarshals the metadata block into
// meta and returns the payload as a forward-only reader. The returned
// reader first replays surplus bytes captured while locating the
// metadata boundary, then reads the body directly with no re-buffering.
//
// The body ending before the metadata is complete yields
// ErrUnexpectedEOF; invalid metadata JSON yields a *DecodeError; any
// other read failure propagates as-is.
func Extract(body io.Reader, meta any) (io.Reader, error) {
	d := NewDecoder()
	buf := make([]byte, 32*1024)

	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			complete, err := d.Feed(buf[:n])
			if err != nil {
				return nil, err
			}
			if complete {
				if err := json.Unmarshal(d.Metadata(), meta); err != nil {
					return nil, &DecodeError{Err: err}
				}
				return newPayloadReader(d.Surplus(), body), nil
			}
		}
		if rerr == io.EOF {
			return nil, ErrUnexpectedEOF
		}
		if rerr != nil {
			return nil, rerr
		}
	}
}

// payloadReader replays the surplus captured during envelope parsing,
// then delegates to the underlying body.
type payloadReader struct {
	surplus []byte
	rest    io.Reader
}

func newPayloadReader(surplus []byte, rest io.Reader) io.Reader {
	return &payloadReader{surplus: surplus, rest: rest}
}

func (p *payloadReader) Read(b []byte) (int, error) {
	if len(p.surplus) > 0 {
		n := copy(b, p.surplus)
		p.surplus = p.surplus[n:]
		return n, nil
	}
	return p.rest.Read(b)
}
