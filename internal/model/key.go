package model

import (
	"sync"
	"unsafe"

	"github.com/zeebo/xxh3"
)

// Key is an xxh3 digest of the caller's string key. The 64-bit word is the
// map index; hi/lo keep the full 128-bit digest so that two strings landing
// on the same 64-bit word can still be told apart.
type Key struct {
	v  uint64
	hi uint64
	lo uint64
}

func NewKey(key string) *Key {
	return buildKey(unsafe.Slice(unsafe.StringData(key), len(key)))
}

// NewKeyFromDigest rebuilds a Key from its stored words (dump restore path).
func NewKeyFromDigest(v, hi, lo uint64) *Key {
	return &Key{v: v, hi: hi, lo: lo}
}

func (k *Key) Value() uint64 {
	return k.v
}

func (k *Key) Hi() uint64 { return k.hi }
func (k *Key) Lo() uint64 { return k.lo }

func (k *Key) IsTheSame(key *Key) (same bool) {
	return k.v == key.v && k.hi == key.hi && k.lo == key.lo
}

var hasherPool = sync.Pool{New: func() any { return xxh3.New() }}

func buildKey(key []byte) *Key {
	// acquire reusable hasher
	hasher := hasherPool.Get().(*xxh3.Hasher)
	hasher.Reset()

	_, _ = hasher.Write(key)

	u128 := hasher.Sum128()

	k := &Key{
		v:  hasher.Sum64(),
		hi: u128.Hi,
		lo: u128.Lo,
	}

	hasherPool.Put(hasher)

	return k
}
