package main

import (
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// An export stream is a sequence of MessagePack [kind, bytes] tuples. The
// identity records of every writer come first so the receiving replica can
// verify the entries that follow.
const (
	kindIdentity = "identity"
	kindEntry    = "entry"
)

type streamItem struct {
	_msgpack struct{} `msgpack:",as_array"`

	Kind string
	Data []byte
}

type streamWriter struct {
	enc *msgpack.Encoder
}

func newStreamWriter(w io.Writer) *streamWriter {
	return &streamWriter{enc: msgpack.NewEncoder(w)}
}

func (s *streamWriter) write(kind string, data []byte) error {
	if err := s.enc.Encode(&streamItem{Kind: kind, Data: data}); err != nil {
		return errors.Wrapf(err, "write %s", kind)
	}
	return nil
}

// readStream calls fn with every item of r. Decoding the payload is left to
// fn so one malformed entry does not end the stream.
func readStream(r io.Reader, fn func(kind string, data []byte) error) error {
	dec := msgpack.NewDecoder(r)
	for {
		var item streamItem
		err := dec.Decode(&item)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "read stream")
		}
		if err := fn(item.Kind, item.Data); err != nil {
			return err
		}
	}
}
