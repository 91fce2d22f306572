// Package containererrs declares the error taxonomy shared by the PAK and
// IoStore decoders, the extraction pipeline, and the archive facade.
// Every error carries the diagnostic context (GUID, path, offset) it was
// raised with; those that wrap a cause (FormatError, DecryptionError,
// CompressionError) unwrap to it, so callers can errors.As/errors.Is
// without the core ever retrying on their behalf.
package containererrs

import "fmt"

// FormatError reports a magic mismatch, bad header size, unsupported
// version, or other field-size mismatch. Fatal for the archive being opened.
type FormatError struct {
	Context string
	Cause   error
}

func (e *FormatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("format error (%s): %v", e.Context, e.Cause)
	}
	return fmt.Sprintf("format error: %s", e.Context)
}
func (e *FormatError) Unwrap() error { return e.Cause }

// CorruptIndexError reports an invariant violated inside a parsed
// structure, e.g. an offset past the end of file.
type CorruptIndexError struct {
	Context string
}

func (e *CorruptIndexError) Error() string { return fmt.Sprintf("corrupt index: %s", e.Context) }

// UnsupportedVersionError reports a container version outside the
// implemented range.
type UnsupportedVersionError struct {
	Version int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported container version: %d", e.Version)
}

// KeyMissingError reports that encryption is required but no key is
// registered under GUID.
type KeyMissingError struct {
	GUID string
}

func (e *KeyMissingError) Error() string { return fmt.Sprintf("no key registered for GUID %s", e.GUID) }

// DecryptionError reports an alignment or key-length problem in the AES
// layer.
type DecryptionError struct {
	Cause error
}

func (e *DecryptionError) Error() string { return fmt.Sprintf("decryption error: %v", e.Cause) }
func (e *DecryptionError) Unwrap() error { return e.Cause }

// CompressionError reports that a registered codec failed to decompress a block.
type CompressionError struct {
	Method string
	Cause  error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compression error (method %q): %v", e.Method, e.Cause)
}
func (e *CompressionError) Unwrap() error { return e.Cause }

// UnknownCodecError reports a compression method name absent from the registry.
type UnknownCodecError struct {
	Name string
}

func (e *UnknownCodecError) Error() string { return fmt.Sprintf("unknown codec: %q", e.Name) }

// FileNotFoundError reports a lookup miss against the container's index.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string { return fmt.Sprintf("file not found: %s", e.Path) }

// ShortReadError reports that the underlying I/O returned fewer bytes than expected.
type ShortReadError struct {
	Offset   int64
	Want     int
	Got      int
	Resource string
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("short read from %s at offset %d: wanted %d bytes, got %d", e.Resource, e.Offset, e.Want, e.Got)
}

// CorruptBlockError reports that a decompressed block's length contradicts
// the block record that described it.
type CorruptBlockError struct {
	BlockIndex int
	Want       uint32
	Got        int
}

func (e *CorruptBlockError) Error() string {
	return fmt.Sprintf("corrupt block %d: expected %d decompressed bytes, got %d", e.BlockIndex, e.Want, e.Got)
}

// PartitionMissingError reports that a CAS partition file referenced by a
// chunk is absent.
type PartitionMissingError struct {
	Index int
}

func (e *PartitionMissingError) Error() string { return fmt.Sprintf("partition %d is missing", e.Index) }

// CancelledError reports that extraction was aborted by a cancellation signal.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "extraction cancelled" }

// ClosedError reports that an operation was issued against a closed archive.
type ClosedError struct{}

func (e *ClosedError) Error() string { return "archive is closed" }

// FileTooLargeError reports that a resolved entry exceeds the configured
// advisory MaxFileSize.
type FileTooLargeError struct {
	Size uint64
	Max  uint64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds configured max %d", e.Size, e.Max)
}
