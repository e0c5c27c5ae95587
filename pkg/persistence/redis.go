// Package persistence adapts two teacher dependencies — go-redis and
// lib/pq — into optional backends that let an overlay node survive a
// restart without relearning its switch table from scratch and keep an
// offline audit trail of routes it has seen. Neither backend is
// consulted on the hot path: pkg/layer2.SwitchTable and
// pkg/layer3.RoutingTable remain the authoritative in-memory state per
// spec.md §5.
package persistence

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shadowmesh/shadowmesh/pkg/addr"
)

// SwitchTableStore snapshots pkg/layer2.SwitchTable entries to Redis so
// a restarted node can warm-start instead of relearning every MAC from
// traffic. Grounded on the teacher's pkg/persistence/redis.go
// Set/Get-with-TTL shape, generalized from its PeerInfo cache to the
// overlay's own (Address, peer, expiry) entries.
type SwitchTableStore struct {
	client *redis.Client
}

// switchEntry is the JSON form of one SwitchTable row.
type switchEntry struct {
	AddrLen uint8  `json:"addr_len"`
	AddrHex string `json:"addr_hex"`
	Peer    string `json:"peer"`
	Expiry  int64  `json:"expiry_unix"`
}

// NewSwitchTableStore connects to addr (host:port) and verifies
// reachability with a single PING.
func NewSwitchTableStore(addr, password string, db int) (*SwitchTableStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("persistence: connect to redis at %s: %w", addr, err)
	}
	return &SwitchTableStore{client: client}, nil
}

// Save snapshots one learned entry, keyed by its overlay address, with a
// Redis TTL matching the entry's own expiry so stale rows vanish on
// their own.
func (s *SwitchTableStore) Save(ctx context.Context, a addr.Address, peer string, expiry time.Time) error {
	entry := switchEntry{
		AddrLen: a.Len,
		AddrHex: fmt.Sprintf("%x", a.Bytes()),
		Peer:    peer,
		Expiry:  expiry.Unix(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("persistence: marshal switch entry: %w", err)
	}
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return nil
	}
	key := fmt.Sprintf("switch:%d:%s", entry.AddrLen, entry.AddrHex)
	return s.client.Set(ctx, key, data, ttl).Err()
}

// LoadAll scans every persisted entry and returns it as
// (Address, peer, expiry) triples for the caller to feed into a fresh
// SwitchTable via Learn.
func (s *SwitchTableStore) LoadAll(ctx context.Context) ([]SwitchSnapshot, error) {
	var out []SwitchSnapshot
	iter := s.client.Scan(ctx, 0, "switch:*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("persistence: read %s: %w", iter.Val(), err)
		}
		var entry switchEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, fmt.Errorf("persistence: unmarshal %s: %w", iter.Val(), err)
		}
		raw, err := hex.DecodeString(entry.AddrHex)
		if err != nil {
			continue
		}
		a, err := addr.New(raw)
		if err != nil {
			continue
		}
		out = append(out, SwitchSnapshot{
			Address: a,
			Peer:    entry.Peer,
			Expiry:  time.Unix(entry.Expiry, 0),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("persistence: scan switch entries: %w", err)
	}
	return out, nil
}

// SwitchSnapshot is one row recovered by LoadAll.
type SwitchSnapshot struct {
	Address addr.Address
	Peer    string
	Expiry  time.Time
}

// Close releases the Redis connection.
func (s *SwitchTableStore) Close() error {
	return s.client.Close()
}
