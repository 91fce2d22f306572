package blockpipe

import (
	"context"
	"fmt"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/pakio/pakio/aescrypt"
	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/codec"
	"github.com/pakio/pakio/containererrs"
	"github.com/pakio/pakio/keystore"
)

var scratchPool bytebufferpool.Pool

// Request is everything Extract needs to turn a resolved locator into
// bytes: the covering block list (already computed by the PAK or IoStore
// decoder) and the container's encryption GUID.
type Request struct {
	GUID      binreader.GUID
	Encrypted bool
	Blocks    []Block
	OutputLen int64
	Parallel  bool
}

// Extract reads, decrypts, and decompresses every block in req, assembling
// the caller's requested byte range. It is a pure function of the index
// and the on-disk bytes: failures are returned, never retried.
func Extract(ctx context.Context, req Request, src FileSource, keys *keystore.Store, codecs *codec.Registry, cache *Cache) ([]byte, error) {
	out := make([]byte, req.OutputLen)

	var key []byte
	if req.Encrypted && !req.GUID.IsZero() {
		k, ok := keys.Get(req.GUID)
		if !ok {
			return nil, &containererrs.KeyMissingError{GUID: req.GUID.String()}
		}
		key = k
	}

	if req.Parallel && len(req.Blocks) > 1 {
		return extractParallel(ctx, req, src, key, codecs, cache, out)
	}
	return extractSequential(ctx, req, src, key, codecs, cache, out)
}

func extractSequential(ctx context.Context, req Request, src FileSource, key []byte, codecs *codec.Registry, cache *Cache, out []byte) ([]byte, error) {
	last := len(req.Blocks) - 1
	for i, blk := range req.Blocks {
		if err := ctx.Err(); err != nil {
			return nil, &containererrs.CancelledError{}
		}
		decompressed, err := readBlock(ctx, blk, src, req.Encrypted, key, codecs, cache)
		if err != nil {
			return nil, err
		}
		if err := checkBlockLength(blk, i, last, decompressed); err != nil {
			return nil, err
		}
		copy(out[blk.OutputOffset:], decompressed[blk.CopyStart:blk.CopyEnd])
	}
	return out, nil
}

func extractParallel(ctx context.Context, req Request, src FileSource, key []byte, codecs *codec.Registry, cache *Cache, out []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &containererrs.CancelledError{}
	}

	results := make([][]byte, len(req.Blocks))
	g, gctx := errgroup.WithContext(ctx)
	for i, blk := range req.Blocks {
		i, blk := i, blk
		g.Go(func() error {
			decompressed, err := readBlock(gctx, blk, src, req.Encrypted, key, codecs, cache)
			if err != nil {
				return err
			}
			results[i] = decompressed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, &containererrs.CancelledError{}
		}
		return nil, err
	}

	last := len(req.Blocks) - 1
	for i, blk := range req.Blocks {
		if err := checkBlockLength(blk, i, last, results[i]); err != nil {
			return nil, err
		}
		copy(out[blk.OutputOffset:], results[i][blk.CopyStart:blk.CopyEnd])
	}
	return out, nil
}

// readBlock fetches, decrypts, and decompresses a single block, consulting
// cache first when present.
func readBlock(ctx context.Context, blk Block, src FileSource, encrypted bool, key []byte, codecs *codec.Registry, cache *Cache) ([]byte, error) {
	cacheKey := blockCacheKey(blk)
	if cache != nil {
		if v, ok := cache.get(cacheKey); ok {
			return v, nil
		}
	}

	readLen := alignUp16(blk.CompressedSize)
	raw, err := src.ReadAt(ctx, blk.FileIndex, blk.OnDiskOffset, readLen)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: reading block %d: %w", blk.Index, err)
	}

	// key is nil when the container GUID is the all-zeros "not encrypted"
	// GUID, whatever the Encrypted flags say.
	if (blk.Encrypted || encrypted) && key != nil {
		scratch := scratchPool.Get()
		defer scratchPool.Put(scratch)
		scratch.Reset()
		scratch.Write(raw)
		if err := aescrypt.DecryptECBInPlace(scratch.B, key[:]); err != nil {
			return nil, err
		}
		raw = scratch.B[:blk.CompressedSize]
	} else {
		raw = raw[:blk.CompressedSize]
	}

	var decompressed []byte
	if blk.MethodName == "" || blk.MethodName == "none" {
		decompressed = append([]byte(nil), raw...)
	} else {
		decompressed, err = codecs.Decompress(raw, int(blk.UncompressedSize), blk.MethodName)
		if err != nil {
			return nil, err
		}
	}

	if cache != nil {
		cache.set(cacheKey, decompressed)
	}
	return decompressed, nil
}

// checkBlockLength enforces the CorruptBlock-on-last-block-only rule: a
// length mismatch on an interior block is logged and tolerated (its
// contribution is still copied byte range by byte range), but on the last
// block it would silently truncate or overrun the caller's buffer, so it
// is fatal there.
func checkBlockLength(blk Block, index, last int, decompressed []byte) error {
	if uint32(len(decompressed)) == blk.UncompressedSize {
		return nil
	}
	if index == last {
		return &containererrs.CorruptBlockError{BlockIndex: blk.Index, Want: blk.UncompressedSize, Got: len(decompressed)}
	}
	klog.Warningf("blockpipe: block %d decompressed to %d bytes, expected %d", blk.Index, len(decompressed), blk.UncompressedSize)
	return nil
}

func blockCacheKey(blk Block) string {
	return fmt.Sprintf("%d:%d:%d", blk.FileIndex, blk.OnDiskOffset, blk.CompressedSize)
}
