package sstable

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sort"
)

type SSTable struct {
	file         *os.File
	indexStart   int64
	count        int
	indexKeys    []string
	indexOffsets []int64
}

func Open(filename string) (*SSTable, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	t, err := load(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return t, nil
}

func load(f *os.File) (*SSTable, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := stat.Size()
	if size < FooterSize+4 {
		return nil, errors.New("sstable: file too small")
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, size-FooterSize); err != nil {
		return nil, err
	}
	indexStart := int64(binary.LittleEndian.Uint64(footer[0:8]))
	count := int(binary.LittleEndian.Uint64(footer[8:16]))
	if binary.LittleEndian.Uint64(footer[16:24]) != MagicNumber {
		return nil, errors.New("sstable: invalid magic number")
	}
	if indexStart < 0 || indexStart > size-FooterSize {
		return nil, errors.New("sstable: corrupt footer")
	}

	r := bufio.NewReader(io.NewSectionReader(f, indexStart, size-FooterSize-indexStart))
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	keys := make([]string, 0, n)
	offsets := make([]int64, 0, n)
	for i := uint32(0); i < n; i++ {
		var kLen uint16
		if err := binary.Read(r, binary.LittleEndian, &kLen); err != nil {
			return nil, err
		}
		k := make([]byte, kLen)
		if _, err := io.ReadFull(r, k); err != nil {
			return nil, err
		}
		var off int64
		if err := binary.Read(r, binary.LittleEndian, &off); err != nil {
			return nil, err
		}
		keys = append(keys, string(k))
		offsets = append(offsets, off)
	}

	return &SSTable{
		file:         f,
		indexStart:   indexStart,
		count:        count,
		indexKeys:    keys,
		indexOffsets: offsets,
	}, nil
}

func (t *SSTable) Len() int {
	return t.count
}

// records reads from offset to the start of the index.
func (t *SSTable) records(offset int64) *bufio.Reader {
	return bufio.NewReader(io.NewSectionReader(t.file, offset, t.indexStart-offset))
}

func readRecord(r *bufio.Reader) (string, []byte, error) {
	var header [6]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return "", nil, err
	}
	key := make([]byte, binary.LittleEndian.Uint16(header[0:2]))
	if _, err := io.ReadFull(r, key); err != nil {
		return "", nil, io.ErrUnexpectedEOF
	}
	val := make([]byte, binary.LittleEndian.Uint32(header[2:6]))
	if _, err := io.ReadFull(r, val); err != nil {
		return "", nil, io.ErrUnexpectedEOF
	}
	return string(key), val, nil
}

func (t *SSTable) Get(key string) ([]byte, bool) {
	idx := sort.Search(len(t.indexKeys), func(i int) bool {
		return t.indexKeys[i] > key
	})
	if idx == 0 {
		return nil, false
	}

	r := t.records(t.indexOffsets[idx-1])
	for {
		k, val, err := readRecord(r)
		if err != nil {
			return nil, false
		}
		if k == key {
			return val, true
		}
		if k > key {
			return nil, false
		}
	}
}

// Scan calls fn for every record in key order until fn returns false.
func (t *SSTable) Scan(fn func(key string, val []byte) bool) error {
	r := t.records(0)
	for {
		k, val, err := readRecord(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(k, val) {
			return nil
		}
	}
}

func (t *SSTable) Close() error {
	return t.file.Close()
}
