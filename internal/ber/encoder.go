package ber

import (
	"errors"
)

// Errors returned by the encoder
var (
	ErrInvalidTagClass  = errors.New("ber: invalid tag class")
	ErrInvalidTagNumber = errors.New("ber: invalid tag number")
	ErrNegativeLength   = errors.New("ber: negative length not allowed")
	ErrInvalidPosition  = errors.New("ber: invalid constructed element position")
)

// BEREncoder encodes ASN.1 values using BER (Basic Encoding Rules).
//
// Constructed elements are written with a Begin/End pair. Begin writes the
// tag and a one byte length placeholder and returns the content position;
// End back-patches the definite length once the content is known.
type BEREncoder struct {
	buf []byte
}

// NewBEREncoder creates a new BER encoder with an optional initial capacity.
func NewBEREncoder(capacity int) *BEREncoder {
	if capacity <= 0 {
		capacity = 64
	}
	return &BEREncoder{
		buf: make([]byte, 0, capacity),
	}
}

// Bytes returns the encoded bytes.
func (e *BEREncoder) Bytes() []byte {
	return e.buf
}

// Reset clears the encoder buffer for reuse.
func (e *BEREncoder) Reset() {
	e.buf = e.buf[:0]
}

// Len returns the current length of encoded data.
func (e *BEREncoder) Len() int {
	return len(e.buf)
}

// WriteTag writes a BER tag in its single or multi-byte form.
func (e *BEREncoder) WriteTag(class, constructed, number int) error {
	if class != ClassUniversal && class != ClassApplication &&
		class != ClassContextSpecific && class != ClassPrivate {
		return ErrInvalidTagClass
	}
	if number < 0 {
		return ErrInvalidTagNumber
	}

	if number <= 30 {
		e.buf = append(e.buf, byte(class)|byte(constructed)|byte(number))
		return nil
	}

	e.buf = append(e.buf, byte(class)|byte(constructed)|0x1F)
	e.writeBase128(number)
	return nil
}

// writeBase128 encodes an integer in base-128 format (high bit indicates continuation)
func (e *BEREncoder) writeBase128(value int) {
	if value == 0 {
		e.buf = append(e.buf, 0)
		return
	}

	var groups []byte
	for value > 0 {
		groups = append(groups, byte(value&0x7F))
		value >>= 7
	}

	for i := len(groups) - 1; i >= 0; i-- {
		b := groups[i]
		if i > 0 {
			b |= 0x80
		}
		e.buf = append(e.buf, b)
	}
}

// WriteLength writes a BER length value to the buffer.
// Uses short form for lengths 0-127, long form for larger values.
func (e *BEREncoder) WriteLength(length int) error {
	if length < 0 {
		return ErrNegativeLength
	}
	e.buf = appendLength(e.buf, length)
	return nil
}

// appendLength appends the minimal definite length encoding.
func appendLength(buf []byte, length int) []byte {
	if length <= MaxShortFormLength {
		return append(buf, byte(length))
	}

	numBytes := 0
	for temp := length; temp > 0; temp >>= 8 {
		numBytes++
	}

	buf = append(buf, byte(LengthLongFormBit|numBytes))
	for i := numBytes - 1; i >= 0; i-- {
		buf = append(buf, byte(length>>(i*8)))
	}
	return buf
}

// writeTLV writes a primitive element with a single-byte tag.
func (e *BEREncoder) writeTLV(tag byte, value []byte) {
	e.buf = append(e.buf, tag)
	e.buf = appendLength(e.buf, len(value))
	e.buf = append(e.buf, value...)
}

// WriteBoolean writes a BER-encoded boolean value.
// Per X.690, FALSE is encoded as 0x00, TRUE as any non-zero value (we use 0xFF).
func (e *BEREncoder) WriteBoolean(v bool) error {
	return e.WriteBooleanWithTag(UniversalBooleanType, v)
}

// WriteBooleanWithTag writes a boolean using an explicit tag byte.
func (e *BEREncoder) WriteBooleanWithTag(tag byte, v bool) error {
	if v {
		e.writeTLV(tag, []byte{0xFF})
	} else {
		e.writeTLV(tag, []byte{0x00})
	}
	return nil
}

// WriteInteger writes a BER-encoded integer value.
// Uses the minimum number of octets with two's complement representation.
func (e *BEREncoder) WriteInteger(v int64) error {
	return e.WriteIntegerWithTag(UniversalIntegerType, v)
}

// WriteIntegerWithTag writes an integer using an explicit tag byte.
func (e *BEREncoder) WriteIntegerWithTag(tag byte, v int64) error {
	e.writeTLV(tag, encodeInteger(v))
	return nil
}

// encodeInteger encodes an int64 as a minimal two's complement byte slice.
func encodeInteger(v int64) []byte {
	n := 8
	for n > 1 {
		top := byte(v >> ((n - 1) * 8))
		next := byte(v >> ((n - 2) * 8))
		if (top == 0x00 && next&0x80 == 0) || (top == 0xFF && next&0x80 != 0) {
			n--
			continue
		}
		break
	}

	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = byte(v >> ((n - 1 - i) * 8))
	}
	return out
}

// WriteEnumerated writes a BER-encoded enumerated value.
// Enumerated values are encoded identically to integers.
func (e *BEREncoder) WriteEnumerated(v int64) error {
	return e.WriteEnumeratedWithTag(UniversalEnumeratedType, v)
}

// WriteEnumeratedWithTag writes an enumerated value using an explicit tag byte.
func (e *BEREncoder) WriteEnumeratedWithTag(tag byte, v int64) error {
	e.writeTLV(tag, encodeInteger(v))
	return nil
}

// WriteOctetString writes a BER-encoded octet string.
func (e *BEREncoder) WriteOctetString(v []byte) error {
	return e.WriteOctetStringWithTag(UniversalOctetStringType, v)
}

// WriteOctetStringWithTag writes an octet string using an explicit tag byte.
func (e *BEREncoder) WriteOctetStringWithTag(tag byte, v []byte) error {
	e.writeTLV(tag, v)
	return nil
}

// WriteString writes s as a universal OCTET STRING.
func (e *BEREncoder) WriteString(s string) error {
	return e.WriteStringWithTag(UniversalOctetStringType, s)
}

// WriteStringWithTag writes s as an octet string using an explicit tag byte.
func (e *BEREncoder) WriteStringWithTag(tag byte, s string) error {
	e.buf = append(e.buf, tag)
	e.buf = appendLength(e.buf, len(s))
	e.buf = append(e.buf, s...)
	return nil
}

// WriteNull writes a BER-encoded null value.
func (e *BEREncoder) WriteNull() error {
	return e.WriteNullWithTag(UniversalNullType)
}

// WriteNullWithTag writes a zero-length element with the given tag.
func (e *BEREncoder) WriteNullWithTag(tag byte) error {
	e.buf = append(e.buf, tag, 0x00)
	return nil
}

// WriteRaw writes raw bytes directly to the buffer.
// Useful for pre-encoded data or custom encoding.
func (e *BEREncoder) WriteRaw(data []byte) {
	e.buf = append(e.buf, data...)
}

// WriteTaggedValue writes a context-specific tagged value.
func (e *BEREncoder) WriteTaggedValue(tagNumber int, constructed bool, value []byte) error {
	constructedFlag := TypePrimitive
	if constructed {
		constructedFlag = TypeConstructed
	}

	if err := e.WriteTag(ClassContextSpecific, constructedFlag, tagNumber); err != nil {
		return err
	}
	if err := e.WriteLength(len(value)); err != nil {
		return err
	}
	e.buf = append(e.buf, value...)
	return nil
}

// BeginTag opens a constructed element with the given tag byte and
// returns the position to pass to EndTag.
func (e *BEREncoder) BeginTag(tag byte) int {
	e.buf = append(e.buf, tag, 0x00)
	return len(e.buf)
}

// EndTag closes the element opened at pos, patching in its length.
func (e *BEREncoder) EndTag(pos int) error {
	if pos < 2 || pos > len(e.buf) {
		return ErrInvalidPosition
	}

	length := len(e.buf) - pos
	if length <= MaxShortFormLength {
		e.buf[pos-1] = byte(length)
		return nil
	}

	lenBytes := appendLength(nil, length)
	extra := len(lenBytes) - 1
	e.buf = append(e.buf, make([]byte, extra)...)
	copy(e.buf[pos+extra:], e.buf[pos:len(e.buf)-extra])
	copy(e.buf[pos-1:], lenBytes)
	return nil
}

// BeginSequence opens a universal SEQUENCE.
func (e *BEREncoder) BeginSequence() int {
	return e.BeginTag(UniversalSequenceType)
}

// EndSequence closes a SEQUENCE opened with BeginSequence.
func (e *BEREncoder) EndSequence(pos int) error {
	return e.EndTag(pos)
}

// BeginSet opens a universal SET.
func (e *BEREncoder) BeginSet() int {
	return e.BeginTag(UniversalSetType)
}

// EndSet closes a SET opened with BeginSet.
func (e *BEREncoder) EndSet(pos int) error {
	return e.EndTag(pos)
}

// BeginApplication opens a constructed application-class element.
func (e *BEREncoder) BeginApplication(number int) int {
	return e.BeginTag(TagByte(ClassApplication, TypeConstructed, number))
}

// EndApplication closes an element opened with BeginApplication.
func (e *BEREncoder) EndApplication(pos int) error {
	return e.EndTag(pos)
}

// BeginContext opens a constructed context-specific element.
func (e *BEREncoder) BeginContext(number int) int {
	return e.BeginTag(TagByte(ClassContextSpecific, TypeConstructed, number))
}

// EndContext closes an element opened with BeginContext.
func (e *BEREncoder) EndContext(pos int) error {
	return e.EndTag(pos)
}
