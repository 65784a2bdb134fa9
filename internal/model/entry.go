package model

// Entry is the unit stored in the cache: a hashed key, an owned payload and
// an absolute expiry instant. The store owns every Entry exclusively; callers
// only ever see payload copies.
type Entry struct {
	key       *Key
	payload   []byte
	expiresAt int64 // unix nano; 0 means never expires
}

func NewEntry(key *Key, payload []byte, expiresAt int64) *Entry {
	return &Entry{key: key, payload: payload, expiresAt: expiresAt}
}

func (e *Entry) Key() *Key {
	if e == nil {
		return nil
	}
	return e.key
}

// Payload returns the internal slice. The store copies it before handing
// anything to a caller.
func (e *Entry) Payload() []byte {
	return e.payload
}

func (e *Entry) SetPayload(p []byte) {
	e.payload = p
}

func (e *Entry) ExpiresAt() int64 {
	return e.expiresAt
}

func (e *Entry) SetExpiresAt(nano int64) {
	e.expiresAt = nano
}

// Expired reports whether the entry must be treated as absent at nowNano.
// An entry expires exactly at its deadline, not after it.
func (e *Entry) Expired(nowNano int64) bool {
	if e == nil {
		return false
	}
	return e.expiresAt != 0 && nowNano >= e.expiresAt
}

func (e *Entry) Weight() int64 {
	return int64(len(e.payload))
}
