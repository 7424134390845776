package objects

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestCodecPlainRoundTrip(t *testing.T) {
	c, err := NewCodec("")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	defer c.Close()

	in := &Item{Stamp: Stamp{LastModifiedBy: "alice"}, Attributes: map[string]any{"name": "myapp", "instancePort": json.Number("7001")}}
	data, encoding, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoding != EncodingUTF8 {
		t.Fatalf("expected %s encoding, got %s", EncodingUTF8, encoding)
	}
	if !bytes.Contains(data, []byte(`"name":"myapp"`)) {
		t.Fatalf("expected plain json payload, got %s", data)
	}

	out := &Item{}
	if err := c.Decode(data, encoding, out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.LastModifiedBy != "alice" || out.Attributes["name"] != "myapp" || out.Attributes["instancePort"] != json.Number("7001") {
		t.Fatalf("unexpected decoded item: %+v", out)
	}
}

func TestCodecZstdRoundTrip(t *testing.T) {
	c, err := NewCodec(EncodingZstd)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	defer c.Close()

	in := &Item{Attributes: map[string]any{"name": "myapp", "description": string(bytes.Repeat([]byte("x"), 4096))}}
	data, encoding, err := c.Encode(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if encoding != EncodingZstd {
		t.Fatalf("expected zstd encoding, got %s", encoding)
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		t.Fatalf("expected zstd frame header")
	}
	if len(data) >= 4096 {
		t.Fatalf("expected compressed payload, got %d bytes", len(data))
	}

	out := &Item{}
	if err := c.Decode(data, encoding, out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Attributes["name"] != "myapp" {
		t.Fatalf("unexpected decoded item: %+v", out)
	}
}

func TestCodecDecodesEitherForm(t *testing.T) {
	plain, err := NewCodec("none")
	if err != nil {
		t.Fatalf("new plain codec: %v", err)
	}
	defer plain.Close()
	compressed, err := NewCodec(EncodingZstd)
	if err != nil {
		t.Fatalf("new zstd codec: %v", err)
	}
	defer compressed.Close()

	data, _, err := compressed.Encode(&Item{Attributes: map[string]any{"name": "a"}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// Objects written before compression was enabled carry no zstd encoding header.
	out := &Item{}
	if err := plain.Decode(data, "", out); err != nil {
		t.Fatalf("plain codec decoding zstd payload: %v", err)
	}
	if out.Attributes["name"] != "a" {
		t.Fatalf("unexpected decoded item: %+v", out)
	}

	out = &Item{}
	if err := compressed.Decode([]byte(`{"name":"b"}`), EncodingUTF8, out); err != nil {
		t.Fatalf("zstd codec decoding plain payload: %v", err)
	}
	if out.Attributes["name"] != "b" {
		t.Fatalf("unexpected decoded item: %+v", out)
	}
}

func TestCodecRejectsUnknownCompression(t *testing.T) {
	if _, err := NewCodec("gzip"); err == nil {
		t.Fatal("expected unsupported compression error")
	}
}

func TestCodecDecodeErrors(t *testing.T) {
	c, err := NewCodec("")
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	defer c.Close()

	if err := c.Decode([]byte("not json"), EncodingUTF8, &Item{}); err == nil {
		t.Fatal("expected json error")
	}
	if err := c.Decode([]byte("[1,2]"), EncodingUTF8, &Item{}); err == nil {
		t.Fatal("expected error decoding array into item")
	}
	if err := c.Decode([]byte("{"), EncodingUTF8, &Item{}); err == nil {
		t.Fatal("expected error for truncated document")
	}
	if err := c.Decode([]byte("garbage"), EncodingZstd, &Item{}); err == nil {
		t.Fatal("expected decompress error")
	}
}
