package protocol

import "fmt"

// Codec encodes and decodes the messages of a session once its protocol
// version is negotiated.
type Codec struct {
	version Version
}

// NewCodec creates a codec for version v.
func NewCodec(v Version) (*Codec, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidVersion, byte(v))
	}
	return &Codec{version: v}, nil
}

// Version returns the protocol version of the codec.
func (c *Codec) Version() Version {
	return c.version
}

// Encode returns the PDU of m.
func (c *Codec) Encode(m Msg) ([]byte, error) {
	return m.Bytes(c.version)
}

// Decode returns the message held by the PDU b.
func (c *Codec) Decode(b []byte) (Msg, error) {
	return GenerateMsg(b, c.version)
}
