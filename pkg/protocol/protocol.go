package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// [Magic 1B] [Op 1B] [KeyLen 2B] [ValLen 4B] [Key] [Value], big endian.
const (
	MagicNumber = 0x43
	HeaderSize  = 8

	// MaxValueSize bounds a single frame's value.
	MaxValueSize = 16 << 20

	OpPut    = 0x01 // Value: JSON contact input. Creates.
	OpGet    = 0x02 // Key: contact ID.
	OpDel    = 0x03 // Key: contact ID.
	OpList   = 0x04 // Key: sort order, Value: search term.
	OpSearch = 0x05 // Key: exact name.
	OpUpdate = 0x06 // Key: contact ID, Value: JSON contact input. Replaces the fields.

	RespOK  = 0x00
	RespErr = 0xFF // Key: error code, Value: message.
	RespVal = 0x01 // Value: JSON payload.
)

// Error codes carried in the key of a RespErr frame.
const (
	CodeNotFound = "not_found"
	CodeInvalid  = "invalid"
	CodeInternal = "internal"
)

var ErrInvalidMagic = errors.New("invalid magic number")

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	if len(key) > 0xFFFF {
		return fmt.Errorf("key too long: %d bytes", len(key))
	}
	if len(value) > MaxValueSize {
		return fmt.Errorf("value too large: %d bytes", len(value))
	}

	frame := make([]byte, HeaderSize, HeaderSize+len(key)+len(value))
	frame[0] = MagicNumber
	frame[1] = op
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(frame[4:8], uint32(len(value)))
	frame = append(frame, key...)
	frame = append(frame, value...)

	_, err := w.Write(frame)
	return err
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, ErrInvalidMagic
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])
	if vLen > MaxValueSize {
		return nil, fmt.Errorf("value too large: %d bytes", vLen)
	}

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}

// EncodeError writes a RespErr frame.
func EncodeError(w io.Writer, code, msg string) error {
	return Encode(w, RespErr, []byte(code), []byte(msg))
}
