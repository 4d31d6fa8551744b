// CLAUDE:SUMMARY VBZ signal codec: delta + zig-zag + streamvbyte-16 packing under zstd.
package pod5

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// VBZ is the pod5 signal compression: each sample is delta coded against the
// previous one, zig-zag mapped to unsigned, packed with streamvbyte-16 (one
// key bit per value selecting a 1- or 2-byte little-endian payload, all key
// bytes first), and the whole buffer is zstd-compressed.

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeVBZ compresses a signal.
func EncodeVBZ(samples []int16) []byte {
	n := len(samples)
	keyLen := (n + 7) / 8
	buf := make([]byte, keyLen, keyLen+2*n)

	var prev int16
	for i, s := range samples {
		d := s - prev
		prev = s
		z := uint16(d<<1) ^ uint16(d>>15)
		if z < 0x100 {
			buf = append(buf, byte(z))
			continue
		}
		buf[i/8] |= 1 << (i % 8)
		buf = binary.LittleEndian.AppendUint16(buf, z)
	}
	return zstdEncoder.EncodeAll(buf, nil)
}

// DecodeVBZ decompresses a signal holding count samples.
func DecodeVBZ(data []byte, count int) ([]int16, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("pod5: vbz zstd: %w", err)
	}
	keyLen := (count + 7) / 8
	if len(raw) < keyLen {
		return nil, fmt.Errorf("pod5: vbz: %d bytes too short for %d keys", len(raw), count)
	}
	keys, payload := raw[:keyLen], raw[keyLen:]

	out := make([]int16, count)
	var prev int16
	p := 0
	for i := 0; i < count; i++ {
		var z uint16
		if keys[i/8]&(1<<(i%8)) != 0 {
			if p+2 > len(payload) {
				return nil, fmt.Errorf("pod5: vbz: truncated payload at sample %d", i)
			}
			z = binary.LittleEndian.Uint16(payload[p:])
			p += 2
		} else {
			if p+1 > len(payload) {
				return nil, fmt.Errorf("pod5: vbz: truncated payload at sample %d", i)
			}
			z = uint16(payload[p])
			p++
		}
		d := int16(z>>1) ^ -int16(z&1)
		prev += d
		out[i] = prev
	}
	return out, nil
}
