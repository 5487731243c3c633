package export

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// xorStream is its own inverse: the keystream byte at position i depends
// only on i and the key, never on the data, so applying it twice returns
// the original bytes. The same function therefore obfuscates on the way
// out and de-obfuscates on the way back in.
func xorStream(data []byte, keySeed string) []byte {
	key := sha256.Sum256([]byte(keySeed))
	out := make([]byte, len(data))
	for i, b := range data {
		mix := byte((i*131 + 17) & 0xFF)
		out[i] = b ^ key[i%len(key)] ^ mix
	}
	return out
}

// CompressAndObfuscate zlib-compresses raw at level 9, then XOR-stream
// obfuscates the result, verifying the round trip before returning —
// a codec self-check failure is fatal to the export run, per the
// obfuscation contract.
func CompressAndObfuscate(raw []byte, keySeed string) (obfuscated []byte, rawSHA256 string, err error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, "", fmt.Errorf("build zlib writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, "", fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("zlib compress: %w", err)
	}

	obfuscated = xorStream(buf.Bytes(), keySeed)
	sum := sha256.Sum256(raw)
	rawSHA256 = hex.EncodeToString(sum[:])

	if err := selfCheck(obfuscated, raw, keySeed); err != nil {
		return nil, "", err
	}
	return obfuscated, rawSHA256, nil
}

// selfCheck reverses CompressAndObfuscate's transform and confirms the
// bytes produced match the original input exactly.
func selfCheck(obfuscated, raw []byte, keySeed string) error {
	compressed := xorStream(obfuscated, keySeed)
	r, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("codec self-check failed: zlib reader: %w", err)
	}
	defer r.Close()
	decoded, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("codec self-check failed: zlib decompress: %w", err)
	}
	if !bytes.Equal(decoded, raw) {
		return fmt.Errorf("codec self-check failed: round trip mismatch")
	}
	return nil
}
