// Package identity provides writer identities: secp256k1 key pairs whose
// public halves are published as content-addressed identity records.
//
// An identity has two keys. The id key names the writer (Identity.ID is its
// compressed public key in hex); the signing key signs log entries
// (Identity.PublicKey). The two cross-sign each other so a verifier holding
// only the identity record can check that the id owner authorized the
// signing key.
package identity

import (
	"encoding/hex"

	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/daviddao/merklelog/pkg/hash"
)

// TypePublicKey is the only identity type this package issues.
const TypePublicKey = "publickey"

// Signatures binds the id key and the signing key together.
type Signatures struct {
	_msgpack struct{} `msgpack:",as_array"`

	// ID is the signing key's signature over Identity.ID.
	ID string `json:"id"`
	// PublicKey is the id key's signature over PublicKey + Signatures.ID.
	PublicKey string `json:"publicKey"`
}

// Identity is a writer identity. Identities created locally hold the
// private signing key; identities resolved from storage do not.
type Identity struct {
	ID         string     `json:"id"`
	PublicKey  string     `json:"publicKey"`
	Signatures Signatures `json:"signatures"`
	Type       string     `json:"type"`

	// Hash is the content address of Bytes.
	Hash  string `json:"hash"`
	Bytes []byte `json:"-"`

	signingKey *btcec.PrivateKey
	provider   *Identities
}

type wireIdentity struct {
	_msgpack struct{} `msgpack:",as_array"`

	ID         string
	PublicKey  string
	Signatures Signatures
	Type       string
}

// seal encodes the public fields and computes the content address.
func (i *Identity) seal() error {
	b, err := msgpack.Marshal(&wireIdentity{
		ID:         i.ID,
		PublicKey:  i.PublicKey,
		Signatures: i.Signatures,
		Type:       i.Type,
	})
	if err != nil {
		return errors.Wrap(err, "encode identity failed")
	}
	h, err := hash.Sum(b)
	if err != nil {
		return err
	}
	i.Bytes, i.Hash = b, h
	return nil
}

// Decode reverses the encoding of an identity record. The result cannot
// sign.
func Decode(b []byte) (*Identity, error) {
	var w wireIdentity
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, errors.Wrap(ErrInvalidIdentity, err.Error())
	}
	if w.ID == "" || w.PublicKey == "" || w.Type == "" {
		return nil, errors.Wrap(ErrInvalidIdentity, "missing fields")
	}
	h, err := hash.Sum(b)
	if err != nil {
		return nil, err
	}
	return &Identity{
		ID:         w.ID,
		PublicKey:  w.PublicKey,
		Signatures: w.Signatures,
		Type:       w.Type,
		Hash:       h,
		Bytes:      append([]byte(nil), b...),
	}, nil
}

// Provider returns the Identities that created i, or nil for identities
// decoded from a record.
func (i *Identity) Provider() *Identities { return i.provider }

// CanSign reports whether the identity holds its private signing key.
func (i *Identity) CanSign() bool { return i.signingKey != nil }

// Sign signs data with the identity's signing key and returns the hex DER
// signature.
func (i *Identity) Sign(data []byte) (string, error) {
	if i.signingKey == nil {
		return "", ErrNoSigningKey
	}
	return signWith(i.signingKey, data)
}

func signWith(key *btcec.PrivateKey, data []byte) (string, error) {
	sig, err := key.Sign(hash.Digest(data))
	if err != nil {
		return "", errors.Wrap(err, "sign failed")
	}
	return hex.EncodeToString(sig.Serialize()), nil
}

func publicKeyHex(key *btcec.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}

// VerifySignature checks a hex DER signature over data against a hex
// compressed public key. Malformed inputs are reported as invalid.
func VerifySignature(sig, publicKey string, data []byte) bool {
	pubBytes, err := hex.DecodeString(publicKey)
	if err != nil {
		return false
	}
	pub, err := btcec.ParsePubKey(pubBytes, btcec.S256())
	if err != nil {
		return false
	}
	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	s, err := btcec.ParseDERSignature(sigBytes, btcec.S256())
	if err != nil {
		return false
	}
	return s.Verify(hash.Digest(data), pub)
}
