package identity

import (
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/daviddao/merklelog/pkg/storage"
)

const identityCacheSize = 1000

// Identities creates, stores and verifies identities. It is the identity
// capability the log consumes: GetIdentity resolves the identity reference
// carried by an entry and VerifyIdentity checks its cross-signatures.
type Identities struct {
	keystore *KeyStore
	storage  storage.Storage
	cache    *lru.Cache
}

// Option configures Identities.
type Option func(*Identities)

// WithKeyStore sets the keystore. The default is an in-memory keystore.
func WithKeyStore(ks *KeyStore) Option {
	return func(ids *Identities) { ids.keystore = ks }
}

// WithStorage sets where identity records are published. Replicas that
// verify each other's entries must be able to read each other's records.
func WithStorage(s storage.Storage) Option {
	return func(ids *Identities) { ids.storage = s }
}

// New returns an Identities with the given options applied.
func New(opts ...Option) (*Identities, error) {
	ids := &Identities{}
	for _, o := range opts {
		o(ids)
	}
	if ids.keystore == nil {
		ks, err := NewKeyStore("")
		if err != nil {
			return nil, err
		}
		ids.keystore = ks
	}
	if ids.storage == nil {
		ids.storage = storage.NewMemory()
	}
	c, err := lru.New(identityCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create identity cache failed")
	}
	ids.cache = c
	return ids, nil
}

// KeyStore returns the keystore.
func (ids *Identities) KeyStore() *KeyStore { return ids.keystore }

// Storage returns the identity record store.
func (ids *Identities) Storage() storage.Storage { return ids.storage }

// CreateIdentity returns the identity for id, generating its keys on first
// use, and publishes its record to storage.
func (ids *Identities) CreateIdentity(id string) (*Identity, error) {
	if id == "" {
		return nil, errors.New("identity id is required")
	}
	idKey, err := ids.keystore.GetOrCreateKey(id)
	if err != nil {
		return nil, err
	}
	idPub := publicKeyHex(idKey)
	signingKey, err := ids.keystore.GetOrCreateKey(idPub)
	if err != nil {
		return nil, err
	}

	i := &Identity{
		ID:         idPub,
		PublicKey:  publicKeyHex(signingKey),
		Type:       TypePublicKey,
		signingKey: signingKey,
		provider:   ids,
	}
	if i.Signatures.ID, err = signWith(signingKey, []byte(i.ID)); err != nil {
		return nil, err
	}
	if i.Signatures.PublicKey, err = signWith(idKey, []byte(i.PublicKey+i.Signatures.ID)); err != nil {
		return nil, err
	}
	if err := i.seal(); err != nil {
		return nil, err
	}
	if err := ids.storage.Put(i.Hash, i.Bytes); err != nil {
		return nil, errors.Wrap(err, "publish identity failed")
	}
	log.WithFields(log.Fields{"id": id, "hash": i.Hash}).Debug("created identity")
	return i, nil
}

// GetIdentity resolves an identity record by its content address.
func (ids *Identities) GetIdentity(hash string) (*Identity, error) {
	if v, ok := ids.cache.Get(hash); ok {
		return v.(*Identity), nil
	}
	b, err := ids.storage.Get(hash)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errors.Wrapf(ErrIdentityNotFound, "hash %s", hash)
	} else if err != nil {
		return nil, err
	}
	i, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if i.Hash != hash {
		return nil, errors.Wrapf(ErrInvalidIdentity, "stored under %s but hashes to %s", hash, i.Hash)
	}
	ids.cache.Add(hash, i)
	return i, nil
}

// AddIdentity stores an identity record received from another replica so
// that entries it signed can be verified here. The record must verify.
func (ids *Identities) AddIdentity(b []byte) (*Identity, error) {
	i, err := Decode(b)
	if err != nil {
		return nil, err
	}
	if !ids.VerifyIdentity(i) {
		return nil, errors.Wrapf(ErrInvalidIdentity, "signatures of %s do not verify", i.Hash)
	}
	if err := ids.storage.Put(i.Hash, i.Bytes); err != nil {
		return nil, errors.Wrap(err, "store identity failed")
	}
	return i, nil
}

// VerifyIdentity checks both cross-signatures of i.
func (ids *Identities) VerifyIdentity(i *Identity) bool {
	if i == nil || i.Type != TypePublicKey {
		return false
	}
	if !VerifySignature(i.Signatures.ID, i.PublicKey, []byte(i.ID)) {
		return false
	}
	return VerifySignature(i.Signatures.PublicKey, i.ID, []byte(i.PublicKey+i.Signatures.ID))
}

// VerifySignature implements the signature half of the identity capability.
func (ids *Identities) VerifySignature(sig, publicKey string, data []byte) bool {
	return VerifySignature(sig, publicKey, data)
}

// Close closes the keystore and identity storage.
func (ids *Identities) Close() error {
	storeErr := ids.storage.Close()
	if err := ids.keystore.Close(); err != nil {
		return err
	}
	return storeErr
}
