package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
)

// Compressor packs float64 columns with XOR encoding followed by zstd
type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// encoderLevel maps the configured level onto zstd's four speed presets.
// Archives are written once per report and read rarely, so the default
// level 3 picks SpeedBetterCompression over the faster SpeedDefault.
// Levels outside 1..4 fall back to SpeedDefault.
func encoderLevel(level int) zstd.EncoderLevel {
	switch level {
	case 1:
		return zstd.SpeedFastest
	case 3:
		return zstd.SpeedBetterCompression
	case 4:
		return zstd.SpeedBestCompression
	}
	return zstd.SpeedDefault
}

// NewCompressor creates a compressor for a level between 1 (fastest) and 4 (best)
func NewCompressor(level int) (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
	}, nil
}

// Compress encodes each value as the XOR of its bits with the previous
// value. Slowly changing columns (timestamps, cumulative counts) produce
// long zero runs that zstd removes.
func (c *Compressor) Compress(values []float64) ([]byte, error) {
	if len(values) == 0 {
		return nil, nil
	}

	buf := new(bytes.Buffer)
	buf.Grow(len(values) * 8)

	var prevBits uint64
	for _, v := range values {
		bits := math.Float64bits(v)
		if err := binary.Write(buf, binary.LittleEndian, bits^prevBits); err != nil {
			return nil, err
		}
		prevBits = bits
	}

	return c.encoder.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// Decompress reverses Compress. count is the number of values encoded.
func (c *Compressor) Decompress(data []byte, count int) ([]float64, error) {
	if len(data) == 0 || count == 0 {
		return nil, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompression failed: %w", err)
	}
	if len(decompressed) != count*8 {
		return nil, fmt.Errorf("decompressed %d bytes, want %d", len(decompressed), count*8)
	}

	buf := bytes.NewReader(decompressed)
	values := make([]float64, count)

	var prevBits uint64
	for i := range values {
		var xorBits uint64
		if err := binary.Read(buf, binary.LittleEndian, &xorBits); err != nil {
			return nil, err
		}
		prevBits ^= xorBits
		values[i] = math.Float64frombits(prevBits)
	}

	return values, nil
}

// Close releases the zstd encoder and decoder; the compressor is unusable
// afterwards
func (c *Compressor) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
