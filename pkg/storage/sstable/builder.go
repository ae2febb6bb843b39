package sstable

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// File layout, little endian:
//
//	[Record]*  Record = [KeyLen 2B] [ValLen 4B] [Key] [Value]
//	[Index]    Index  = [Count 4B] ([KeyLen 2B] [Key] [Offset 8B])*
//	[Footer]   Footer = [IndexStart 8B] [Records 8B] [Magic 8B]
const (
	MagicNumber = 0x434F4E5441435401
	IndexRate   = 64
	FooterSize  = 24
)

// Builder writes records in strictly ascending key order.
type Builder struct {
	file         *os.File
	writer       *bufio.Writer
	offset       int64
	count        int
	lastKey      string
	indexKeys    []string
	indexOffsets []int64
}

func NewBuilder(filename string) (*Builder, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &Builder{
		file:   f,
		writer: bufio.NewWriter(f),
		offset: 0,
	}, nil
}

func (b *Builder) Add(key string, val []byte) error {
	if len(key) == 0 || len(key) > 0xFFFF {
		return fmt.Errorf("sstable: bad key length %d", len(key))
	}
	if b.count > 0 && key <= b.lastKey {
		return fmt.Errorf("sstable: key %q out of order after %q", key, b.lastKey)
	}
	if b.count%IndexRate == 0 {
		b.indexKeys = append(b.indexKeys, key)
		b.indexOffsets = append(b.indexOffsets, b.offset)
	}

	var header [6]byte
	binary.LittleEndian.PutUint16(header[0:2], uint16(len(key)))
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(val)))
	if _, err := b.writer.Write(header[:]); err != nil {
		return err
	}
	if _, err := b.writer.WriteString(key); err != nil {
		return err
	}
	if _, err := b.writer.Write(val); err != nil {
		return err
	}

	b.offset += int64(len(header)) + int64(len(key)) + int64(len(val))
	b.count++
	b.lastKey = key
	return nil
}

// Close writes the index and footer, syncs, and closes the file.
func (b *Builder) Close() error {
	indexStart := b.offset

	if err := binary.Write(b.writer, binary.LittleEndian, uint32(len(b.indexKeys))); err != nil {
		return err
	}
	for i, k := range b.indexKeys {
		if err := binary.Write(b.writer, binary.LittleEndian, uint16(len(k))); err != nil {
			return err
		}
		if _, err := b.writer.WriteString(k); err != nil {
			return err
		}
		if err := binary.Write(b.writer, binary.LittleEndian, b.indexOffsets[i]); err != nil {
			return err
		}
	}

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint64(footer[0:8], uint64(indexStart))
	binary.LittleEndian.PutUint64(footer[8:16], uint64(b.count))
	binary.LittleEndian.PutUint64(footer[16:24], MagicNumber)
	if _, err := b.writer.Write(footer); err != nil {
		return err
	}

	if err := b.writer.Flush(); err != nil {
		return err
	}
	if err := b.file.Sync(); err != nil {
		return err
	}
	return b.file.Close()
}

// Abort closes and removes a partially written file.
func (b *Builder) Abort() {
	b.file.Close()
	os.Remove(b.file.Name())
}
