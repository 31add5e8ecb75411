package ber

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/KilimcininKorOglu/obarepl/internal/logging"
)

// Availability is the result of probing a StreamReader for a complete element.
type Availability int

const (
	// NeedMoreData means the type, length or value bytes have not all arrived.
	NeedMoreData Availability = iota
	// Ready means a complete element can be read without blocking.
	Ready
	// Error means the bytes received so far can never form a valid element.
	Error
)

// String returns the name of the availability state.
func (a Availability) String() string {
	switch a {
	case NeedMoreData:
		return "NeedMoreData"
	case Ready:
		return "Ready"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// readerState tracks how much of the next element header has been consumed.
type readerState int

const (
	stateNeedType readerState = iota
	stateNeedFirstLengthByte
	stateNeedAdditionalLengthBytes
	stateNeedValueBytes
)

// ReaderOption configures a StreamReader.
type ReaderOption func(*StreamReader)

// WithLogger sets the logger used for lenient-decoding diagnostics.
func WithLogger(l logging.Logger) ReaderOption {
	return func(r *StreamReader) {
		r.logger = l
	}
}

// WithMetrics sets the counters updated by the reader.
func WithMetrics(m *Metrics) ReaderOption {
	return func(r *StreamReader) {
		r.metrics = m
	}
}

// StreamReader decodes BER elements incrementally from a Source.
//
// The element header is consumed as a small state machine so that a caller
// on a non-blocking transport can call ElementAvailable repeatedly as bytes
// arrive; partial progress is kept between calls and no byte is read twice.
// The Read methods consume whole elements and block if the Source blocks.
//
// A StreamReader is owned by a single connection and is not safe for
// concurrent use.
type StreamReader struct {
	src            Source
	maxElementSize int

	state             readerState
	peekType          byte
	peekLength        int
	lengthBytesNeeded int

	root    sequenceLimiter
	limiter *sequenceLimiter
	gen     uint64

	logger   logging.Logger
	metrics  *Metrics
	utf8Warn *rate.Sometimes
}

// NewStreamReader creates a reader over src. Elements longer than
// maxElementSize are rejected; zero means unlimited.
func NewStreamReader(src Source, maxElementSize int, opts ...ReaderOption) *StreamReader {
	r := &StreamReader{
		src:            src,
		maxElementSize: maxElementSize,
		logger:         logging.NewNop(),
		utf8Warn:       &rate.Sometimes{First: 1, Interval: time.Minute},
	}
	r.root.readLimit = -1
	r.limiter = &r.root
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = DefaultMetrics()
	}
	return r
}

// MaxElementSize returns the configured element size limit.
func (r *StreamReader) MaxElementSize() int {
	return r.maxElementSize
}

// Offset returns the number of bytes consumed since the last reset.
func (r *StreamReader) Offset() int {
	return r.root.bytesRead
}

// Reset returns the reader to its initial state: no partial element, no
// open sequences, offset zero. The source is kept.
func (r *StreamReader) Reset() {
	r.state = stateNeedType
	r.peekType = 0
	r.peekLength = 0
	r.lengthBytesNeeded = 0
	r.root.bytesRead = 0
	r.limiter = &r.root
}

// ResetSource resets the reader and binds it to src. A nil src leaves the
// reader unusable until it is bound again.
func (r *StreamReader) ResetSource(src Source) {
	r.src = src
	r.Reset()
}

func (r *StreamReader) errorf(err error, format string, args ...interface{}) error {
	return NewDecodeError(r.Offset(), fmt.Sprintf(format, args...), err)
}

func (r *StreamReader) ioError(err error) error {
	var de *DecodeError
	switch {
	case errors.As(err, &de), errors.Is(err, ErrReaderReleased):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return r.errorf(ErrUnexpectedEOF, "truncated element")
	}
	return fmt.Errorf("ber: read: %w", err)
}

func (r *StreamReader) available() int {
	if r.src == nil {
		return 0
	}
	return r.src.Buffered()
}

// consumeByte reads one byte within the current scope.
func (r *StreamReader) consumeByte() (byte, error) {
	if r.src == nil {
		return 0, ErrReaderReleased
	}
	if err := r.limiter.checkLimit(1); err != nil {
		return 0, r.errorf(err, "element header exceeds enclosing sequence")
	}
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, err
	}
	return b, nil
}

func (r *StreamReader) needTypeState(blocking bool) (bool, error) {
	if !blocking && r.available() == 0 {
		return false, nil
	}
	b, err := r.consumeByte()
	if err != nil {
		// A clean end of stream between top-level elements is not a decode error.
		if errors.Is(err, io.EOF) && r.limiter.isRoot() {
			r.root.bytesRead--
			return false, io.EOF
		}
		return false, r.ioError(err)
	}
	r.peekType = b
	r.state = stateNeedFirstLengthByte
	return true, nil
}

func (r *StreamReader) needFirstLengthByteState(blocking bool) (bool, error) {
	if !blocking && r.available() == 0 {
		return false, nil
	}
	b, err := r.consumeByte()
	if err != nil {
		return false, r.ioError(err)
	}

	if b&LengthLongFormBit == 0 {
		r.peekLength = int(b)
		if err := r.checkElementSize(); err != nil {
			return false, err
		}
		r.state = stateNeedValueBytes
		return true, nil
	}

	n := int(b & 0x7F)
	if n == 0 {
		return false, r.errorf(ErrIndefiniteLength, "indefinite length for type 0x%02x", r.peekType)
	}
	if n > MaxLengthOctets {
		return false, r.errorf(ErrLengthTooLong, "%d length octets for type 0x%02x", n, r.peekType)
	}
	r.lengthBytesNeeded = n
	r.peekLength = 0
	r.state = stateNeedAdditionalLengthBytes
	return r.needAdditionalLengthBytesState(blocking)
}

func (r *StreamReader) needAdditionalLengthBytesState(blocking bool) (bool, error) {
	for r.lengthBytesNeeded > 0 {
		if !blocking && r.available() == 0 {
			return false, nil
		}
		b, err := r.consumeByte()
		if err != nil {
			return false, r.ioError(err)
		}
		r.peekLength = r.peekLength<<8 | int(b)
		r.lengthBytesNeeded--
	}

	if err := r.checkElementSize(); err != nil {
		return false, err
	}
	r.state = stateNeedValueBytes
	return true, nil
}

func (r *StreamReader) checkElementSize() error {
	if r.maxElementSize > 0 && r.peekLength > r.maxElementSize {
		return r.errorf(ErrMaxSizeExceeded, "element length %d exceeds maximum %d", r.peekLength, r.maxElementSize)
	}
	if r.peekLength > r.limiter.remaining() {
		return r.errorf(ErrSequenceLimitExceeded, "element length %d exceeds %d bytes left in sequence",
			r.peekLength, r.limiter.remaining())
	}
	return nil
}

// PeekType returns the tag byte of the next element without consuming its
// value. Repeated calls return the same tag.
func (r *StreamReader) PeekType() (byte, error) {
	if r.state == stateNeedType {
		if _, err := r.needTypeState(true); err != nil {
			return 0, err
		}
	}
	return r.peekType, nil
}

// PeekLength returns the value length of the next element without
// consuming its value. Repeated calls return the same length.
func (r *StreamReader) PeekLength() (int, error) {
	if _, err := r.PeekType(); err != nil {
		return 0, err
	}
	switch r.state {
	case stateNeedFirstLengthByte:
		if _, err := r.needFirstLengthByteState(true); err != nil {
			return 0, err
		}
	case stateNeedAdditionalLengthBytes:
		if _, err := r.needAdditionalLengthBytesState(true); err != nil {
			return 0, err
		}
	}
	return r.peekLength, nil
}

// ElementAvailable reports whether a complete element can be read without
// blocking. It consumes header bytes as they arrive but never reports an
// error merely because more data is needed.
func (r *StreamReader) ElementAvailable() (Availability, error) {
	if r.src == nil {
		return Error, ErrReaderReleased
	}
	steps := []struct {
		state readerState
		fn    func(bool) (bool, error)
	}{
		{stateNeedType, r.needTypeState},
		{stateNeedFirstLengthByte, r.needFirstLengthByteState},
		{stateNeedAdditionalLengthBytes, r.needAdditionalLengthBytesState},
	}
	for _, step := range steps {
		if r.state != step.state {
			continue
		}
		ok, err := step.fn(false)
		if err != nil {
			return Error, err
		}
		if !ok {
			return NeedMoreData, nil
		}
	}
	if r.available() >= r.peekLength {
		return Ready, nil
	}
	return NeedMoreData, nil
}

// HasNextElement reports whether the current scope has more elements. Inside
// a sequence this is decided by the declared length; at the root it is
// whether any bytes are buffered or partially consumed.
func (r *StreamReader) HasNextElement() bool {
	if !r.limiter.isRoot() {
		return r.limiter.remaining() > 0
	}
	return r.state != stateNeedType || r.available() > 0
}

// beginValue checks the tag of the next element and returns its length.
func (r *StreamReader) beginValue(tag byte) (int, error) {
	t, err := r.PeekType()
	if err != nil {
		return 0, err
	}
	if t != tag {
		return 0, &TagMismatchError{Offset: r.Offset(), Expected: tag, Actual: t}
	}
	return r.PeekLength()
}

// readValue consumes the n value bytes of the peeked element.
func (r *StreamReader) readValue(n int) ([]byte, error) {
	if err := r.limiter.checkLimit(n); err != nil {
		return nil, r.errorf(err, "value of %d bytes exceeds enclosing sequence", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.src, buf); err != nil {
		return nil, r.ioError(err)
	}
	r.state = stateNeedType
	return buf, nil
}

// ReadBoolean reads a universal BOOLEAN.
func (r *StreamReader) ReadBoolean() (bool, error) {
	return r.ReadBooleanWithTag(UniversalBooleanType)
}

// ReadBooleanWithTag reads a boolean with the given tag. The length must be 1.
func (r *StreamReader) ReadBooleanWithTag(tag byte) (bool, error) {
	n, err := r.beginValue(tag)
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, r.errorf(ErrInvalidBoolean, "boolean length %d, expected 1", n)
	}
	v, err := r.readValue(1)
	if err != nil {
		return false, err
	}
	return v[0] != 0x00, nil
}

// ReadInteger reads a universal INTEGER.
func (r *StreamReader) ReadInteger() (int64, error) {
	return r.ReadIntegerWithTag(UniversalIntegerType)
}

// ReadIntegerWithTag reads an integer of 1 to 8 octets, sign extended from
// the first octet.
func (r *StreamReader) ReadIntegerWithTag(tag byte) (int64, error) {
	n, err := r.beginValue(tag)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 8 {
		return 0, r.errorf(ErrInvalidInteger, "integer length %d, expected 1 to 8", n)
	}
	v, err := r.readValue(n)
	if err != nil {
		return 0, err
	}
	return decodeInteger(v), nil
}

// decodeInteger decodes big-endian two's complement octets.
func decodeInteger(v []byte) int64 {
	var result int64
	if v[0]&0x80 != 0 {
		result = -1
	}
	for _, b := range v {
		result = result<<8 | int64(b)
	}
	return result
}

// ReadEnumerated reads a universal ENUMERATED.
func (r *StreamReader) ReadEnumerated() (int, error) {
	return r.ReadEnumeratedWithTag(UniversalEnumeratedType)
}

// ReadEnumeratedWithTag reads an enumerated value of 1 to 4 octets.
func (r *StreamReader) ReadEnumeratedWithTag(tag byte) (int, error) {
	n, err := r.beginValue(tag)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > 4 {
		return 0, r.errorf(ErrInvalidEnumerated, "enumerated length %d, expected 1 to 4", n)
	}
	v, err := r.readValue(n)
	if err != nil {
		return 0, err
	}
	return int(decodeInteger(v)), nil
}

// ReadNull reads a universal NULL.
func (r *StreamReader) ReadNull() error {
	return r.ReadNullWithTag(UniversalNullType)
}

// ReadNullWithTag reads a zero-length element with the given tag.
func (r *StreamReader) ReadNullWithTag(tag byte) error {
	n, err := r.beginValue(tag)
	if err != nil {
		return err
	}
	if n != 0 {
		return r.errorf(ErrInvalidNull, "null length %d, expected 0", n)
	}
	r.state = stateNeedType
	return nil
}

// ReadOctetString reads a universal OCTET STRING.
func (r *StreamReader) ReadOctetString() ([]byte, error) {
	return r.ReadOctetStringWithTag(UniversalOctetStringType)
}

// ReadOctetStringWithTag reads the raw value of an octet string with the given tag.
func (r *StreamReader) ReadOctetStringWithTag(tag byte) ([]byte, error) {
	n, err := r.beginValue(tag)
	if err != nil {
		return nil, err
	}
	return r.readValue(n)
}

// ReadOctetStringInto appends the value of a universal OCTET STRING to buf.
func (r *StreamReader) ReadOctetStringInto(buf *bytes.Buffer) error {
	v, err := r.ReadOctetString()
	if err != nil {
		return err
	}
	buf.Write(v)
	return nil
}

// ReadOctetStringAsString reads a universal OCTET STRING as text.
func (r *StreamReader) ReadOctetStringAsString() (string, error) {
	return r.ReadOctetStringAsStringWithTag(UniversalOctetStringType)
}

// ReadOctetStringAsStringWithTag reads an octet string as text. Values that
// are not valid UTF-8 are decoded one rune per byte and logged rather than
// rejected.
func (r *StreamReader) ReadOctetStringAsStringWithTag(tag byte) (string, error) {
	v, err := r.ReadOctetStringWithTag(tag)
	if err != nil {
		return "", err
	}
	return r.decodeString(v), nil
}

func (r *StreamReader) decodeString(v []byte) string {
	if utf8.Valid(v) {
		return string(v)
	}
	r.metrics.InvalidUTF8.Inc()
	r.utf8Warn.Do(func() {
		r.logger.Warn("octet string is not valid UTF-8, decoding byte by byte",
			"offset", r.Offset(), "length", len(v))
	})
	runes := make([]rune, len(v))
	for i, b := range v {
		runes[i] = rune(b)
	}
	return string(runes)
}

// ReadStartSequence opens a universal SEQUENCE scope.
func (r *StreamReader) ReadStartSequence() (*SequenceGuard, error) {
	return r.ReadStartExplicitTag(UniversalSequenceType)
}

// ReadStartSequenceWithTag opens a SEQUENCE encoded with an implicit tag.
func (r *StreamReader) ReadStartSequenceWithTag(tag byte) (*SequenceGuard, error) {
	return r.ReadStartExplicitTag(tag)
}

// ReadStartSet opens a universal SET scope.
func (r *StreamReader) ReadStartSet() (*SequenceGuard, error) {
	return r.ReadStartExplicitTag(UniversalSetType)
}

// ReadStartSetWithTag opens a SET encoded with an implicit tag.
func (r *StreamReader) ReadStartSetWithTag(tag byte) (*SequenceGuard, error) {
	return r.ReadStartExplicitTag(tag)
}

// ReadStartExplicitTag opens a constructed element with the given tag. Reads
// inside the scope are limited to its declared length.
func (r *StreamReader) ReadStartExplicitTag(tag byte) (*SequenceGuard, error) {
	n, err := r.beginValue(tag)
	if err != nil {
		return nil, err
	}
	r.gen++
	r.limiter = r.limiter.startSequence(n)
	r.limiter.gen = r.gen
	r.state = stateNeedType
	return &SequenceGuard{r: r, limiter: r.limiter, gen: r.gen}, nil
}

// ReadEndSequence closes the innermost open scope.
func (r *StreamReader) ReadEndSequence() error {
	if r.limiter.isRoot() {
		return ErrNoOpenSequence
	}
	return r.drainAndPop()
}

// ReadEndSet closes the innermost open scope.
func (r *StreamReader) ReadEndSet() error {
	return r.ReadEndSequence()
}

// ReadEndExplicitTag closes the innermost open scope.
func (r *StreamReader) ReadEndExplicitTag() error {
	return r.ReadEndSequence()
}

// endScope closes the scope of a guard, along with any scopes opened inside
// it that were left open. Guards whose scope is no longer on the stack are
// ignored.
func (r *StreamReader) endScope(l *sequenceLimiter, gen uint64) error {
	if l.gen != gen || !r.onStack(l) {
		return nil
	}
	for r.limiter != l {
		if err := r.drainAndPop(); err != nil {
			return err
		}
	}
	return r.drainAndPop()
}

func (r *StreamReader) onStack(l *sequenceLimiter) bool {
	for cur := r.limiter; cur != nil; cur = cur.parent {
		if cur == l {
			return !cur.isRoot()
		}
	}
	return false
}

// drainAndPop discards whatever is left of the innermost scope and pops it.
func (r *StreamReader) drainAndPop() error {
	if r.src == nil {
		return ErrReaderReleased
	}
	l := r.limiter
	if rem := l.remaining(); rem > 0 {
		if err := l.checkLimit(rem); err != nil {
			return r.errorf(err, "draining %d trailing bytes", rem)
		}
		if _, err := io.CopyN(io.Discard, r.src, int64(rem)); err != nil {
			return r.ioError(err)
		}
		r.metrics.TrailingBytes.Add(float64(rem))
		r.metrics.TrailingDrains.Inc()
		r.logger.Debug("discarded trailing bytes at end of sequence",
			"bytes", rem, "offset", r.Offset())
	}
	r.limiter = l.parent
	r.state = stateNeedType
	return nil
}

// SkipElement consumes the next element without decoding it.
func (r *StreamReader) SkipElement() error {
	n, err := r.PeekLength()
	if err != nil {
		return err
	}
	if err := r.limiter.checkLimit(n); err != nil {
		return r.errorf(err, "skipped element of %d bytes exceeds enclosing sequence", n)
	}
	if _, err := io.CopyN(io.Discard, r.src, int64(n)); err != nil {
		return r.ioError(err)
	}
	r.state = stateNeedType
	return nil
}

// ReadRawElement consumes the next element and returns its tag and value
// bytes undecoded.
func (r *StreamReader) ReadRawElement() (byte, []byte, error) {
	tag, err := r.PeekType()
	if err != nil {
		return 0, nil, err
	}
	n, err := r.PeekLength()
	if err != nil {
		return 0, nil, err
	}
	v, err := r.readValue(n)
	if err != nil {
		return 0, nil, err
	}
	return tag, v, nil
}
