package spool

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// codec compresses spooled payloads. EncodeAll and DecodeAll are safe for
// concurrent use, so one codec serves the whole store.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

func (c *codec) compress(payload []byte) []byte {
	return c.encoder.EncodeAll(payload, make([]byte, 0, len(payload)/2))
}

func (c *codec) decompress(blob []byte) ([]byte, error) {
	payload, err := c.decoder.DecodeAll(blob, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return payload, nil
}

func (c *codec) close() {
	c.encoder.Close()
	c.decoder.Close()
}
