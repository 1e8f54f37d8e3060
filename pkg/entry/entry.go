// Package entry implements the immutable, signed, content-addressed record
// that makes up a log.
//
// Creating an entry is an explicit pipeline:
//
//	Build          assemble the canonical fields
//	EncodeSigned   encode the fields the signature covers
//	Identity.Sign  sign those bytes
//	Seal           attach key, identity and signature, encode the full
//	               record and compute its content address
//
// Create runs all four steps. Each step is exported so the deterministic
// encoding can be exercised without a signer.
package entry

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/daviddao/merklelog/pkg/clock"
	"github.com/daviddao/merklelog/pkg/hash"
	"github.com/daviddao/merklelog/pkg/identity"
)

// Version is the entry format version written by this package.
const Version = 2

// Entry is one record of a log. Treat it as immutable once created.
type Entry struct {
	// ID is the log this entry belongs to.
	ID      string      `json:"id"`
	Payload []byte      `json:"payload"`
	Clock   clock.Clock `json:"clock"`
	// Next holds the hashes of the heads at creation time.
	Next []string `json:"next"`
	// Refs holds hashes of older ancestors at power-of-two distances.
	Refs []string `json:"refs"`
	V    int      `json:"v"`

	// Key is the writer's public signing key.
	Key string `json:"key"`
	// Identity is the content address of the writer's identity record.
	Identity string `json:"identity"`
	Sig      string `json:"sig"`

	Hash  string `json:"hash"`
	Bytes []byte `json:"-"`
}

// Verifier is the identity capability needed to check an entry signature.
type Verifier interface {
	GetIdentity(hash string) (*identity.Identity, error)
	VerifySignature(sig, publicKey string, data []byte) bool
}

type options struct {
	clock    *clock.Clock
	next     []string
	refs     []string
	badParam error
}

// Option customizes Create.
type Option func(*options)

// WithClock sets the entry clock. The default is time 0 for the signer.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = &c }
}

// WithNext sets the causal predecessors by hash.
func WithNext(hashes ...string) Option {
	return func(o *options) {
		for _, h := range hashes {
			if h == "" {
				o.badParam = errors.Wrap(ErrInvalidArgument, "'next' contains an empty hash")
				return
			}
			o.next = append(o.next, h)
		}
	}
}

// WithNextEntries sets the causal predecessors from prior entries.
func WithNextEntries(entries ...*Entry) Option {
	return func(o *options) {
		for _, e := range entries {
			if e == nil || e.Hash == "" {
				o.badParam = errors.Wrap(ErrInvalidArgument, "'next' contains an entry without a hash")
				return
			}
			o.next = append(o.next, e.Hash)
		}
	}
}

// WithRefs sets the reference pointers.
func WithRefs(hashes ...string) Option {
	return func(o *options) {
		for _, h := range hashes {
			if h == "" {
				o.badParam = errors.Wrap(ErrInvalidArgument, "'refs' contains an empty hash")
				return
			}
			o.refs = append(o.refs, h)
		}
	}
}

// Build assembles an unsigned entry with canonical (non-nil) slices.
func Build(logID string, payload []byte, c clock.Clock, next, refs []string) *Entry {
	if next == nil {
		next = []string{}
	}
	if refs == nil {
		refs = []string{}
	}
	return &Entry{
		ID:      logID,
		Payload: payload,
		Clock:   c,
		Next:    next,
		Refs:    refs,
		V:       Version,
	}
}

// Seal attaches the signer fields, encodes the full record and computes its
// content address.
func Seal(e *Entry, key, identityRef, sig string) error {
	e.Key, e.Identity, e.Sig = key, identityRef, sig
	b, err := Encode(e)
	if err != nil {
		return err
	}
	h, err := hash.Sum(b)
	if err != nil {
		return err
	}
	e.Bytes, e.Hash = b, h
	return nil
}

// Create builds, signs and seals a new entry for log logID.
func Create(id *identity.Identity, logID string, payload []byte, opts ...Option) (*Entry, error) {
	if id == nil {
		return nil, errors.Wrap(ErrInvalidArgument, "identity is required, cannot create entry")
	}
	if logID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "entry requires an id")
	}
	if payload == nil {
		return nil, errors.Wrap(ErrInvalidEntry, "entry requires a payload")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.badParam != nil {
		return nil, o.badParam
	}
	c := clock.New(id.PublicKey)
	if o.clock != nil {
		c = *o.clock
	}

	e := Build(logID, payload, c, o.next, o.refs)
	signed, err := EncodeSigned(e)
	if err != nil {
		return nil, err
	}
	sig, err := id.Sign(signed)
	if err != nil {
		return nil, err
	}
	if err := Seal(e, id.PublicKey, id.Hash, sig); err != nil {
		return nil, err
	}
	return e, nil
}

// Verify reports whether e is signed by the identity it names and whether
// its bytes and hash match its fields. A bad signature is a normal outcome
// and yields false, never an error.
func Verify(v Verifier, e *Entry) bool {
	if v == nil || e == nil {
		return false
	}
	full, err := Encode(e)
	if err != nil || !bytes.Equal(full, e.Bytes) || !hash.Matches(e.Hash, e.Bytes) {
		return false
	}
	id, err := v.GetIdentity(e.Identity)
	if err != nil || id.PublicKey != e.Key {
		return false
	}
	signed, err := EncodeSigned(e)
	if err != nil {
		return false
	}
	return v.VerifySignature(e.Sig, e.Key, signed)
}

// IsEqual reports whether a and b are the same entry.
func IsEqual(a, b *Entry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash == b.Hash
}

// IsEntry is a cheap structural check for values received from outside.
func IsEntry(e *Entry) bool {
	return e != nil &&
		e.ID != "" &&
		e.V != 0 &&
		e.Hash != "" &&
		e.Next != nil &&
		e.Payload != nil
}

// Hashes returns the hashes of entries, in order.
func Hashes(entries []*Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Hash
	}
	return out
}
