package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/BoonLang/boon-sub001/internal/arena"
)

// Domain prefixes for content-addressed identity. The version suffix
// leaves room for an algorithm migration without colliding with old keys.
const (
	domainMessage = "boon/message/v1"
	domainValue   = "boon/value/v1"
)

// Message is a value in transit between nodes. The Key is content
// addressed over (source, version, payload): delivering the same logical
// update twice produces the same key, which is what lets the engine
// deduplicate within a tick instead of double-applying.
type Message struct {
	Source  arena.Handle
	Payload Value
	Version int64
	Key     string
}

// NewMessage builds a message and computes its idempotency key.
func NewMessage(source arena.Handle, p Value, version int64) (Message, error) {
	key, err := MessageKey(source, p, version)
	if err != nil {
		return Message{}, err
	}
	return Message{Source: source, Payload: p, Version: version, Key: key}, nil
}

// MessageKey computes the content-addressed idempotency key for a message.
func MessageKey(source arena.Handle, p Value, version int64) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("message key: %w", err)
	}
	payload := fmt.Sprintf("%d:%d:%d:", source.Index, source.Gen, version)
	return hashWithDomain(domainMessage, append([]byte(payload), canonical...)), nil
}

// ValueHash computes a content-addressed hash of a payload value alone.
// Used for trace summaries and delta-log bookkeeping.
func ValueHash(p Value) (string, error) {
	canonical, err := MarshalCanonical(p)
	if err != nil {
		return "", fmt.Errorf("value hash: %w", err)
	}
	return hashWithDomain(domainValue, canonical), nil
}

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain || 0x00 || data). The null byte prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
