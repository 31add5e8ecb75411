package ber

// Tag class constants (bits 7-8 of the tag byte)
const (
	ClassUniversal       = 0x00 // 00xxxxxx
	ClassApplication     = 0x40 // 01xxxxxx
	ClassContextSpecific = 0x80 // 10xxxxxx
	ClassPrivate         = 0xC0 // 11xxxxxx
)

// Constructed flag (bit 6 of the tag byte)
const (
	TypePrimitive   = 0x00 // xx0xxxxx
	TypeConstructed = 0x20 // xx1xxxxx
)

// Universal tag numbers for primitive types
const (
	TagBoolean     = 0x01
	TagInteger     = 0x02
	TagBitString   = 0x03
	TagOctetString = 0x04
	TagNull        = 0x05
	TagOID         = 0x06
	TagEnumerated  = 0x0A
	TagUTF8String  = 0x0C
	TagSequence    = 0x10
	TagSet         = 0x11
)

// Complete universal tag bytes as they appear on the wire.
const (
	UniversalBooleanType     byte = ClassUniversal | TypePrimitive | TagBoolean
	UniversalIntegerType     byte = ClassUniversal | TypePrimitive | TagInteger
	UniversalOctetStringType byte = ClassUniversal | TypePrimitive | TagOctetString
	UniversalNullType        byte = ClassUniversal | TypePrimitive | TagNull
	UniversalEnumeratedType  byte = ClassUniversal | TypePrimitive | TagEnumerated
	UniversalSequenceType    byte = ClassUniversal | TypeConstructed | TagSequence
	UniversalSetType         byte = ClassUniversal | TypeConstructed | TagSet
)

// Length encoding constants
const (
	// LengthLongFormBit indicates long form length encoding (bit 8 set)
	LengthLongFormBit = 0x80
	// MaxShortFormLength is the maximum length encodable in short form (0-127)
	MaxShortFormLength = 127
	// MaxLengthOctets is the largest number of long form length octets
	// accepted by StreamReader.
	MaxLengthOctets = 4
)

// TagByte assembles a single-byte tag from its class, constructed flag and
// number. Numbers above 30 need the multi-byte form written by WriteTag.
func TagByte(class, constructed, number int) byte {
	return byte(class) | byte(constructed) | byte(number&0x1F)
}

// TagClass returns the class bits of a tag byte.
func TagClass(tag byte) int {
	return int(tag & 0xC0)
}

// TagNumber returns the low five bits of a tag byte.
func TagNumber(tag byte) int {
	return int(tag & 0x1F)
}

// IsConstructed reports whether the tag byte has the constructed bit set.
func IsConstructed(tag byte) bool {
	return tag&TypeConstructed != 0
}
