package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestEncodeDecode(t *testing.T) {
	buf := new(bytes.Buffer)
	key := []byte("name_desc")
	val := []byte("alice")

	if err := Encode(buf, OpList, key, val); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.Len() != HeaderSize+len(key)+len(val) {
		t.Fatalf("frame length: got %d", buf.Len())
	}
	if buf.Bytes()[0] != MagicNumber {
		t.Fatalf("magic: got %#x", buf.Bytes()[0])
	}

	pkg, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkg.Op != OpList {
		t.Errorf("got op %v, want %v", pkg.Op, OpList)
	}
	if !bytes.Equal(pkg.Key, key) {
		t.Errorf("key mismatch: got %q", pkg.Key)
	}
	if !bytes.Equal(pkg.Value, val) {
		t.Errorf("value mismatch: got %q", string(pkg.Value))
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00, OpPut, 0, 0, 0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'})
	_, err := Decode(buf)
	if !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("expected invalid magic error, got %v", err)
	}
}

func TestEncodeDecodeEmptyKeyValue(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, OpGet, nil, nil); err != nil {
		t.Fatalf("Encode empty failed: %v", err)
	}
	pkg, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if pkg.Op != OpGet || len(pkg.Key) != 0 || len(pkg.Value) != 0 {
		t.Errorf("unexpected result: %+v", pkg)
	}
}

func TestRoundtripAllOps(t *testing.T) {
	ops := []byte{OpPut, OpGet, OpDel, OpList, OpSearch, RespOK, RespVal, RespErr}
	key := []byte("c0ffee")
	val := []byte(`{"name":"Alice"}`)

	for _, op := range ops {
		buf := new(bytes.Buffer)
		if err := Encode(buf, op, key, val); err != nil {
			t.Errorf("Encode op %v failed: %v", op, err)
			continue
		}
		pkg, err := Decode(buf)
		if err != nil {
			t.Errorf("Decode op %v failed: %v", op, err)
			continue
		}
		if pkg.Op != op {
			t.Errorf("op %v: got %v", op, pkg.Op)
		}
	}
}

func TestDecodeIncompleteHeader(t *testing.T) {
	r := bytes.NewReader([]byte{MagicNumber, 0x01}) // only 2 bytes
	_, err := Decode(r)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("expected unexpected EOF for incomplete header, got %v", err)
	}
}

func TestDecodeTruncatedValue(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := Encode(buf, OpPut, []byte("k"), []byte("value")); err != nil {
		t.Fatal(err)
	}
	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-2])
	if _, err := Decode(truncated); err == nil {
		t.Error("expected error for truncated value")
	}
}

func TestSizeLimits(t *testing.T) {
	if err := Encode(io.Discard, OpPut, make([]byte, 0x10000), nil); err == nil {
		t.Error("expected error for oversized key")
	}
	header := []byte{MagicNumber, OpPut, 0, 0, 0x7F, 0xFF, 0xFF, 0xFF}
	if _, err := Decode(bytes.NewReader(header)); err == nil {
		t.Error("expected error for oversized value length")
	}
}

func TestEncodeError(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := EncodeError(buf, CodeNotFound, "no such contact"); err != nil {
		t.Fatal(err)
	}
	pkg, err := Decode(buf)
	if err != nil {
		t.Fatal(err)
	}
	if pkg.Op != RespErr || string(pkg.Key) != CodeNotFound || string(pkg.Value) != "no such contact" {
		t.Errorf("unexpected error frame: %+v", pkg)
	}
}
