package borica

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const (
	orderNumberSpace = 1_000_000
	timestampLayout  = "20060102150405"
)

// IDGenerator produces ORDER, NONCE and TIMESTAMP values.
// Order numbers are advisory: six digits cannot be globally unique, so the
// persisted order id and correlation token remain the real keys.
type IDGenerator struct {
	now     func() time.Time
	offset  uint64
	counter atomic.Uint64
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	var buf [8]byte
	offset := uint64(time.Now().UnixNano())
	if _, err := rand.Read(buf[:]); err == nil {
		offset = binary.BigEndian.Uint64(buf[:])
	}
	return &IDGenerator{now: now, offset: offset % orderNumberSpace}
}

// OrderNumber returns six zero-padded digits derived from the millisecond of the day,
// a per-process counter and a random per-process offset. Calls within the same
// millisecond never collide because the counter step is coprime with 10^6.
func (g *IDGenerator) OrderNumber() string {
	t := g.now().UTC()
	msOfDay := uint64(t.Hour())*3_600_000 + uint64(t.Minute())*60_000 + uint64(t.Second())*1000 + uint64(t.Nanosecond()/1_000_000)
	seq := g.counter.Add(1) % orderNumberSpace

	n := (msOfDay*7919 + seq*104729 + g.offset) % orderNumberSpace
	return fmt.Sprintf("%06d", n)
}

// Nonce returns 32 uppercase hex characters from 16 random bytes.
func (g *IDGenerator) Nonce() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf[:])), nil
}

// TimestampUTC returns YYYYMMDDHHMMSS in UTC. The gateway rejects requests more
// than 15 minutes away from its own clock.
func (g *IDGenerator) TimestampUTC() string {
	return g.now().UTC().Format(timestampLayout)
}

// ParseTimestamp parses a gateway TIMESTAMP value.
func ParseTimestamp(v string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, v, time.UTC)
}

var defaultIDs = NewIDGenerator(nil)

func NewOrderNumber() string     { return defaultIDs.OrderNumber() }
func NewNonce() (string, error) { return defaultIDs.Nonce() }
func NewTimestampUTC() string   { return defaultIDs.TimestampUTC() }
