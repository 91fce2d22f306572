// Package aescrypt implements the in-place AES-256-ECB block decryption
// the container formats were built against. ECB is dictated by the
// on-disk format, not chosen by this layer: no padding is added or
// stripped, because the caller always knows the true uncompressed length
// from the index and the ciphertext already arrives 16-byte aligned.
//
// No dependency in the retrieved example pack wraps raw unpadded
// block-cipher ECB (the pack's crypto dependencies target TLS, hashing,
// or authenticated modes); crypto/aes's cipher.Block is the whole of what
// ECB needs; there is nothing left for a third-party package to add.
package aescrypt

import (
	"crypto/aes"
	"fmt"

	"github.com/pakio/pakio/containererrs"
)

const blockSize = 16

// MisalignedError reports that a ciphertext buffer was not a multiple of
// the AES block size.
type MisalignedError struct{ Len int }

func (e *MisalignedError) Error() string {
	return fmt.Sprintf("aescrypt: ciphertext length %d is not 16-byte aligned", e.Len)
}

// BadKeyLenError reports a key whose length isn't valid for AES-256.
type BadKeyLenError struct{ Len int }

func (e *BadKeyLenError) Error() string {
	return fmt.Sprintf("aescrypt: key length %d is not 32 bytes", e.Len)
}

// DecryptECB decrypts ciphertext in 16-byte blocks under key (which must
// be exactly 32 bytes, for AES-256) and returns a freshly allocated
// plaintext buffer of the same length. len(ciphertext) must be a multiple
// of 16.
func DecryptECB(ciphertext, key []byte) ([]byte, error) {
	if len(key) != 32 {
		return nil, &containererrs.DecryptionError{Cause: &BadKeyLenError{Len: len(key)}}
	}
	if len(ciphertext)%blockSize != 0 {
		return nil, &containererrs.DecryptionError{Cause: &MisalignedError{Len: len(ciphertext)}}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &containererrs.DecryptionError{Cause: err}
	}

	plaintext := make([]byte, len(ciphertext))
	for off := 0; off < len(ciphertext); off += blockSize {
		block.Decrypt(plaintext[off:off+blockSize], ciphertext[off:off+blockSize])
	}
	return plaintext, nil
}

// DecryptECBInPlace decrypts buf in place, block by block, avoiding an
// extra allocation on the pipeline's hot path. len(buf) must be a
// multiple of 16.
func DecryptECBInPlace(buf, key []byte) error {
	if len(key) != 32 {
		return &containererrs.DecryptionError{Cause: &BadKeyLenError{Len: len(key)}}
	}
	if len(buf)%blockSize != 0 {
		return &containererrs.DecryptionError{Cause: &MisalignedError{Len: len(buf)}}
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return &containererrs.DecryptionError{Cause: err}
	}

	for off := 0; off < len(buf); off += blockSize {
		block.Decrypt(buf[off:off+blockSize], buf[off:off+blockSize])
	}
	return nil
}
