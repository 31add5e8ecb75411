package protocol

import (
	"github.com/KilimcininKorOglu/obarepl/internal/ber"
	"github.com/KilimcininKorOglu/obarepl/internal/ldap"
)

// readerPool serves the BER bodies of update and monitor messages. Bodies
// are already bounded by the PDU, so readers enforce no element size.
var readerPool = ber.NewReaderPool(0)

func encodeBER(b *ByteArrayBuilder, write func(w *ber.BEREncoder) error) []byte {
	w := ber.NewBEREncoder(128)
	if err := write(w); err != nil {
		b.setErr(err)
		return nil
	}
	return w.Bytes()
}

func decodeBER(s *ByteArrayScanner, data []byte, read func(r *ber.StreamReader) error) {
	if s.err != nil || len(data) == 0 {
		return
	}
	r := readerPool.Acquire(ber.NewBuffer(data))
	defer readerPool.Release(r)
	if err := read(r); err != nil {
		s.fail("BER body: %v", err)
	}
}

func encodeMods(b *ByteArrayBuilder, mods []ldap.Modification) []byte {
	return encodeBER(b, func(w *ber.BEREncoder) error {
		return ldap.WriteModifications(w, mods)
	})
}

func decodeMods(s *ByteArrayScanner, data []byte) (mods []ldap.Modification) {
	decodeBER(s, data, func(r *ber.StreamReader) (err error) {
		mods, err = ldap.ReadModifications(r)
		return err
	})
	return mods
}

func encodeAttrs(b *ByteArrayBuilder, attrs []ldap.Attribute) []byte {
	return encodeBER(b, func(w *ber.BEREncoder) error {
		return ldap.WriteAttributes(w, attrs)
	})
}

func decodeAttrs(s *ByteArrayScanner, data []byte) (attrs []ldap.Attribute) {
	decodeBER(s, data, func(r *ber.StreamReader) (err error) {
		attrs, err = ldap.ReadAttributes(r)
		return err
	})
	return attrs
}

// appendSized writes the length of p followed by p.
func (b *ByteArrayBuilder) appendSized(p []byte) {
	AppendInt(b, len(p))
	b.AppendRaw(p)
}

// sized reads a length written by appendSized followed by that many bytes.
func (s *ByteArrayScanner) sized() []byte {
	return s.Raw(ScanInt[int](s))
}
