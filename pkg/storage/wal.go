package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"io"
	"os"
	"sync"
	"time"
)

// [CRC32 4B] [Timestamp 8B] [Op 1B] [KeyLen 2B] [ValSize 4B] [Key] [Value]

const (
	HeaderSize = 4 + 8 + 1 + 2 + 4 // 19 Bytes

	// MaxValueSize bounds a record's value. Longer lengths in a header mean
	// the record is corrupt.
	MaxValueSize = 16 << 20
)

var ErrRecordTooLarge = errors.New("wal: record too large")

const (
	OpPut    byte = 0x01
	OpDelete byte = 0x02
)

type WALEntry struct {
	Op        byte
	Key       string
	Value     []byte
	Timestamp time.Time
}

type WAL struct {
	file *os.File
	mu   sync.Mutex
	buf  *bufio.Writer
}

func OpenWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &WAL{
		file: f,
		buf:  bufio.NewWriter(f),
	}, nil
}

// Append writes one record and syncs it to disk before returning.
func (w *WAL) Append(op byte, key string, value []byte) error {
	if len(key) > 0xFFFF || len(value) > MaxValueSize {
		return ErrRecordTooLarge
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	header := make([]byte, HeaderSize)
	ts := uint64(time.Now().UnixNano())

	binary.LittleEndian.PutUint64(header[4:12], ts)
	header[12] = op
	binary.LittleEndian.PutUint16(header[13:15], uint16(len(key)))
	binary.LittleEndian.PutUint32(header[15:19], uint32(len(value)))

	checksum := crc32.NewIEEE()
	checksum.Write(header[4:])
	checksum.Write([]byte(key))
	checksum.Write(value)
	binary.LittleEndian.PutUint32(header[0:4], checksum.Sum32())

	if _, err := w.buf.Write(header); err != nil {
		return err
	}
	if _, err := w.buf.WriteString(key); err != nil {
		return err
	}
	if _, err := w.buf.Write(value); err != nil {
		return err
	}

	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *WAL) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Flush()
	return w.file.Close()
}

func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return err
	}
	path := w.file.Name()
	if err := w.file.Close(); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	return w.file.Sync()
}

func (w *WAL) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		return 0, err
	}
	st, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

type WALIterator struct {
	reader *bufio.Reader
	file   *os.File
}

func (w *WAL) NewIterator() (*WALIterator, error) {
	f, err := os.Open(w.file.Name())
	if err != nil {
		return nil, err
	}
	return &WALIterator{
		file:   f,
		reader: bufio.NewReader(f),
	}, nil
}

// Next returns io.EOF at a clean end of log.
func (it *WALIterator) Next() (WALEntry, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(it.reader, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			return WALEntry{}, errors.New("wal: torn header")
		}
		return WALEntry{}, err
	}

	storedCRC := binary.LittleEndian.Uint32(header[0:4])
	ts := binary.LittleEndian.Uint64(header[4:12])
	op := header[12]
	keyLen := binary.LittleEndian.Uint16(header[13:15])
	valSize := binary.LittleEndian.Uint32(header[15:19])
	if valSize > MaxValueSize {
		return WALEntry{}, ErrRecordTooLarge
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(it.reader, key); err != nil {
		return WALEntry{}, errors.New("wal: corrupted key")
	}
	value := make([]byte, valSize)
	if _, err := io.ReadFull(it.reader, value); err != nil {
		return WALEntry{}, errors.New("wal: corrupted value")
	}

	checksum := crc32.NewIEEE()
	checksum.Write(header[4:])
	checksum.Write(key)
	checksum.Write(value)
	if checksum.Sum32() != storedCRC {
		return WALEntry{}, errors.New("wal: crc mismatch")
	}

	return WALEntry{
		Op:        op,
		Key:       string(key),
		Value:     value,
		Timestamp: time.Unix(0, int64(ts)),
	}, nil
}

func (it *WALIterator) Close() {
	it.file.Close()
}
