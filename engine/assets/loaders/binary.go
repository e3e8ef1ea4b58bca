package loaders

import (
	"os"
)

// Blob is the raw content of a file.
type Blob struct {
	Data []byte
}

func (b *Blob) Size() int {
	return len(b.Data)
}

type BinaryLoader struct{}

func (bl *BinaryLoader) LoadAsset(path string) (*Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data}, nil
}

// bytesToBytecode packs little-endian bytes into 32-bit words. Trailing
// bytes that do not fill a word are dropped.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode
}
