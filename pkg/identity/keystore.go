package identity

import (
	"github.com/btcsuite/btcd/btcec"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	lvlstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

var keyPrefix = []byte("key/")

// KeyStore keeps secp256k1 private keys in LevelDB, keyed by a caller
// chosen id.
type KeyStore struct {
	db *leveldb.DB
}

// NewKeyStore opens the keystore at path. An empty path keeps the keys in
// memory only.
func NewKeyStore(path string) (*KeyStore, error) {
	var (
		db  *leveldb.DB
		err error
	)
	if path == "" {
		db, err = leveldb.Open(lvlstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, errors.Wrap(err, "open keystore failed")
	}
	return &KeyStore{db: db}, nil
}

func keyName(id string) []byte {
	return append(append([]byte(nil), keyPrefix...), id...)
}

// HasKey reports whether a key exists for id.
func (k *KeyStore) HasKey(id string) (bool, error) {
	ok, err := k.db.Has(keyName(id), nil)
	if err != nil {
		return false, errors.Wrap(err, "access keystore failed")
	}
	return ok, nil
}

// CreateKey generates and stores a new key for id, replacing any existing one.
func (k *KeyStore) CreateKey(id string) (*btcec.PrivateKey, error) {
	priv, err := btcec.NewPrivateKey(btcec.S256())
	if err != nil {
		return nil, errors.Wrap(err, "generate key failed")
	}
	if err := k.db.Put(keyName(id), priv.Serialize(), nil); err != nil {
		return nil, errors.Wrap(err, "store key failed")
	}
	return priv, nil
}

// GetKey returns the key stored for id, or ErrKeyNotFound.
func (k *KeyStore) GetKey(id string) (*btcec.PrivateKey, error) {
	b, err := k.db.Get(keyName(id), nil)
	if err == leveldb.ErrNotFound {
		return nil, errors.Wrapf(ErrKeyNotFound, "id %q", id)
	} else if err != nil {
		return nil, errors.Wrap(err, "read keystore failed")
	}
	priv, _ := btcec.PrivKeyFromBytes(btcec.S256(), b)
	return priv, nil
}

// GetOrCreateKey returns the key for id, generating one on first use.
func (k *KeyStore) GetOrCreateKey(id string) (*btcec.PrivateKey, error) {
	priv, err := k.GetKey(id)
	if err == nil {
		return priv, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}
	return k.CreateKey(id)
}

// Close closes the underlying database.
func (k *KeyStore) Close() error { return k.db.Close() }
