package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

var (
	// ErrBufferTooSmall indicates a field does not fit at the requested offset.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrInvalidKeySize indicates a key that is not exactly 32 bytes.
	ErrInvalidKeySize = errors.New("invalid key size")
)

// All helpers use absolute offsets into dst/src. On failure nothing is
// written and the offset is left untouched.

func checkBounds(buf []byte, offset, size int) error {
	if offset < 0 || offset+size > len(buf) {
		return errors.Wrapf(ErrBufferTooSmall, "need %d bytes at offset %d, have %d", size, offset, len(buf))
	}
	return nil
}

func checkKey(key []byte) error {
	if len(key) != ed25519.PublicKeySize {
		return errors.Wrapf(ErrInvalidKeySize, "got %d bytes", len(key))
	}
	return nil
}

func PutUint8(dst []byte, v uint8, offset *int) error {
	if err := checkBounds(dst, *offset, 1); err != nil {
		return err
	}

	dst[*offset] = v
	*offset += 1
	return nil
}

// PutKey32 writes exactly ed25519.PublicKeySize bytes of key.
func PutKey32(dst []byte, key []byte, offset *int) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := checkBounds(dst, *offset, ed25519.PublicKeySize); err != nil {
		return err
	}

	copy(dst[*offset:*offset+ed25519.PublicKeySize], key)
	*offset += ed25519.PublicKeySize
	return nil
}

func PutUint32(dst []byte, v uint32, offset *int) error {
	if err := checkBounds(dst, *offset, 4); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
	return nil
}

// PutUint64 writes v as 8 little-endian bytes.
func PutUint64(dst []byte, v uint64, offset *int) error {
	if err := checkBounds(dst, *offset, 8); err != nil {
		return err
	}

	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
	return nil
}

// PutOptionalKey32 writes a COption<Pubkey>: an optionSize byte tag followed
// by the key. An empty key leaves the tag and key region zeroed.
func PutOptionalKey32(dst []byte, key []byte, offset *int, optionSize int) error {
	if len(key) > 0 {
		if err := checkKey(key); err != nil {
			return err
		}
	}
	if err := checkBounds(dst, *offset, optionSize+ed25519.PublicKeySize); err != nil {
		return err
	}

	if len(key) > 0 {
		dst[*offset] = 1
		copy(dst[*offset+optionSize:*offset+optionSize+ed25519.PublicKeySize], key)
	}
	*offset += optionSize + ed25519.PublicKeySize
	return nil
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) error {
	if err := checkBounds(dst, *offset, optionSize+8); err != nil {
		return err
	}

	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint64(dst[*offset+optionSize:], *v)
	}
	*offset += optionSize + 8
	return nil
}

func GetUint8(src []byte, dst *uint8, offset *int) error {
	if err := checkBounds(src, *offset, 1); err != nil {
		return err
	}

	*dst = src[*offset]
	*offset += 1
	return nil
}

func GetKey32(src []byte, dst *ed25519.PublicKey, offset *int) error {
	if err := checkBounds(src, *offset, ed25519.PublicKeySize); err != nil {
		return err
	}

	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
	return nil
}

func GetUint32(src []byte, dst *uint32, offset *int) error {
	if err := checkBounds(src, *offset, 4); err != nil {
		return err
	}

	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
	return nil
}

func GetUint64(src []byte, dst *uint64, offset *int) error {
	if err := checkBounds(src, *offset, 8); err != nil {
		return err
	}

	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
	return nil
}

func GetOptionalKey32(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) error {
	if err := checkBounds(src, *offset, optionSize+ed25519.PublicKeySize); err != nil {
		return err
	}

	if src[*offset] == 1 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[*offset+optionSize:])
	}
	*offset += optionSize + ed25519.PublicKeySize
	return nil
}

func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) error {
	if err := checkBounds(src, *offset, optionSize+8); err != nil {
		return err
	}

	if src[*offset] == 1 {
		val := binary.LittleEndian.Uint64(src[*offset+optionSize:])
		*dst = &val
	}
	*offset += optionSize + 8
	return nil
}
