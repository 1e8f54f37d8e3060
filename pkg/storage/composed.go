package storage

// Composed layers a fast store (typically LRU) over a slow, durable one.
// Writes go to both; reads hit the fast store first and fill it from the
// slow one on a miss.
type Composed struct {
	fast Storage
	slow Storage
}

// NewComposed returns a read-through composition of fast over slow.
func NewComposed(fast, slow Storage) *Composed {
	return &Composed{fast: fast, slow: slow}
}

// Put implements Storage.Put.
func (c *Composed) Put(hash string, data []byte) error {
	if err := c.slow.Put(hash, data); err != nil {
		return err
	}
	return c.fast.Put(hash, data)
}

// Get implements Storage.Get.
func (c *Composed) Get(hash string) ([]byte, error) {
	data, err := c.fast.Get(hash)
	if err == nil {
		return data, nil
	} else if err != ErrNotFound {
		return nil, err
	}
	data, err = c.slow.Get(hash)
	if err != nil {
		return nil, err
	}
	if err := c.fast.Put(hash, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Del implements Storage.Del.
func (c *Composed) Del(hash string) error {
	if err := c.fast.Del(hash); err != nil {
		return err
	}
	return c.slow.Del(hash)
}

// Iterate implements Storage.Iterate over the durable store, which holds a
// superset of the fast one.
func (c *Composed) Iterate(fn func(hash string, data []byte) error) error {
	return c.slow.Iterate(fn)
}

// Merge implements Storage.Merge.
func (c *Composed) Merge(other Storage) error { return mergeInto(c, other) }

// Clear implements Storage.Clear.
func (c *Composed) Clear() error {
	if err := c.fast.Clear(); err != nil {
		return err
	}
	return c.slow.Clear()
}

// Close implements Storage.Close.
func (c *Composed) Close() error {
	fastErr := c.fast.Close()
	if err := c.slow.Close(); err != nil {
		return err
	}
	return fastErr
}

// Usage implements Usage when the durable store does.
func (c *Composed) Usage() (count int64, bytes int64, err error) {
	if u, ok := c.slow.(Usage); ok {
		return u.Usage()
	}
	n, err := Count(c.slow)
	return int64(n), 0, err
}

var _ Storage = (*Composed)(nil)
