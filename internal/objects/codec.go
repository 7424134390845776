package objects

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

const (
	// EncodingUTF8 is the content encoding recorded for plain JSON payloads.
	EncodingUTF8 = "UTF-8"
	// EncodingZstd marks zstd-compressed JSON payloads.
	EncodingZstd = "zstd"

	contentTypeJSON = "application/json"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec turns objects into stored payloads and back. Encoding is plain JSON
// (struct fields in declaration order, map keys sorted), optionally zstd
// compressed. Decoding accepts either form regardless of the write setting.
type Codec struct {
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

func NewCodec(compression string) (*Codec, error) {
	var compress bool
	switch compression {
	case "", "none":
	case EncodingZstd:
		compress = true
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}

	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Codec{compress: compress, encoder: encoder, decoder: decoder}, nil
}

// Encode returns the payload and the content encoding to store with it.
func (c *Codec) Encode(v Timestamped) ([]byte, string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", err
	}
	if !c.compress {
		return data, EncodingUTF8, nil
	}
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data))), EncodingZstd, nil
}

func (c *Codec) Decode(data []byte, contentEncoding string, into Timestamped) error {
	if contentEncoding == EncodingZstd || bytes.HasPrefix(data, zstdMagic) {
		plain, err := c.decoder.DecodeAll(data, nil)
		if err != nil {
			return fmt.Errorf("decompress payload: %w", err)
		}
		data = plain
	}
	return json.Unmarshal(data, into)
}

func (c *Codec) Close() error {
	c.decoder.Close()
	return c.encoder.Close()
}
