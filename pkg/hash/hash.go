// Package hash computes content addresses and signing digests.
//
// A content address is a CIDv1 with the raw codec over a sha2-256
// multihash, rendered in base58btc. The same bytes always produce the same
// address on every platform.
package hash

import (
	"crypto/sha256"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

// ErrInvalidAddress is returned by Parse for strings that are not content
// addresses produced by Sum.
var ErrInvalidAddress = errors.New("invalid content address")

// Sum returns the content address of data.
func Sum(data []byte) (string, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", errors.Wrap(err, "compute multihash failed")
	}
	s, err := cid.NewCidV1(cid.Raw, mh).StringOfBase(multibase.Base58BTC)
	if err != nil {
		return "", errors.Wrap(err, "encode cid failed")
	}
	return s, nil
}

// Parse checks that s is a raw sha2-256 CIDv1 address.
func Parse(s string) error {
	c, err := cid.Decode(s)
	if err != nil {
		return errors.Wrapf(ErrInvalidAddress, "%q: %v", s, err)
	}
	p := c.Prefix()
	if p.Version != 1 || p.Codec != cid.Raw || p.MhType != multihash.SHA2_256 {
		return errors.Wrapf(ErrInvalidAddress, "%q: unexpected prefix %v", s, p)
	}
	return nil
}

// Matches reports whether addr is the content address of data.
func Matches(addr string, data []byte) bool {
	got, err := Sum(data)
	return err == nil && got == addr
}

// Digest returns the sha256 digest that signatures are computed over.
func Digest(data []byte) []byte {
	d := sha256.Sum256(data)
	return d[:]
}
