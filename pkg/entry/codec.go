package entry

import (
	"bytes"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/hash"
)

// The wire format is a MessagePack array whose element order is fixed by
// the struct field order below. Arrays rather than maps keep the encoding
// canonical without relying on key sorting.

type wireClock struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID   string
	Time uint64
}

// signedFields is what the writer signs.
type signedFields struct {
	_msgpack struct{} `msgpack:",as_array"`

	V       int
	ID      string
	Clock   wireClock
	Payload []byte
	Next    []string
	Refs    []string
}

// wireEntry is the full record whose content address is the entry hash.
type wireEntry struct {
	_msgpack struct{} `msgpack:",as_array"`

	V        int
	ID       string
	Clock    wireClock
	Payload  []byte
	Next     []string
	Refs     []string
	Key      string
	Identity string
	Sig      string
}

// EncodeSigned returns the canonical bytes covered by the entry signature:
// every field except key, identity, signature and hash.
func EncodeSigned(e *Entry) ([]byte, error) {
	b, err := msgpack.Marshal(&signedFields{
		V:       e.V,
		ID:      e.ID,
		Clock:   wireClock{ID: e.Clock.ID, Time: e.Clock.Time},
		Payload: e.Payload,
		Next:    e.Next,
		Refs:    e.Refs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode signed fields failed")
	}
	return b, nil
}

// Encode returns the canonical encoding of the full entry record.
func Encode(e *Entry) ([]byte, error) {
	b, err := msgpack.Marshal(&wireEntry{
		V:        e.V,
		ID:       e.ID,
		Clock:    wireClock{ID: e.Clock.ID, Time: e.Clock.Time},
		Payload:  e.Payload,
		Next:     e.Next,
		Refs:     e.Refs,
		Key:      e.Key,
		Identity: e.Identity,
		Sig:      e.Sig,
	})
	if err != nil {
		return nil, errors.Wrap(err, "encode entry failed")
	}
	return b, nil
}

// Decode parses entry bytes received from storage or a peer. Malformed
// bytes fail with ErrDecode. Decode does not check authorization or the
// signature; that happens when the entry is joined into a log.
func Decode(b []byte) (*Entry, error) {
	r := bytes.NewReader(b)
	var w wireEntry
	if err := msgpack.NewDecoder(r).Decode(&w); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}
	if r.Len() != 0 {
		return nil, errors.Wrapf(ErrDecode, "%d trailing bytes", r.Len())
	}

	switch {
	case w.V != Version:
		return nil, errors.Wrapf(ErrDecode, "unsupported version %d", w.V)
	case w.ID == "":
		return nil, errors.Wrap(ErrDecode, "missing log id")
	case w.Clock.ID == "":
		return nil, errors.Wrap(ErrDecode, "missing clock id")
	case w.Payload == nil:
		return nil, errors.Wrap(ErrDecode, "missing payload")
	case w.Next == nil || w.Refs == nil:
		return nil, errors.Wrap(ErrDecode, "missing next or refs")
	case w.Key == "" || w.Identity == "" || w.Sig == "":
		return nil, errors.Wrap(ErrDecode, "missing signature fields")
	}

	h, err := hash.Sum(b)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:       w.ID,
		Payload:  w.Payload,
		Clock:    clock.Clock{ID: w.Clock.ID, Time: w.Clock.Time},
		Next:     w.Next,
		Refs:     w.Refs,
		V:        w.V,
		Key:      w.Key,
		Identity: w.Identity,
		Sig:      w.Sig,
		Hash:     h,
		Bytes:    append([]byte(nil), b...),
	}, nil
}
