// Package redisbackend is an optional distributed backing for vfcache,
// letting multiple vegafusion runtime instances share cached task values
// over Redis instead of each keeping an isolated in-process LRU — the same
// multi-node state-sharing role go-redis plays in the teacher's
// registry package (registry/registry.go).
package redisbackend

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vegafusion/vegafusion-go/internal/vfcache"
	"github.com/vegafusion/vegafusion-go/internal/vferrors"
	"github.com/vegafusion/vegafusion-go/internal/vfvalue"
)

func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(false)
}

// Backend shares cached task values across runtime instances via a Redis
// keyspace, keyed by the same vfcache.Key the in-process LRU uses.
type Backend struct {
	client *redis.Client
	prefix string
}

// New wraps client for use as a distributed cache backing. prefix
// namespaces keys (e.g. by deployment or tenant) within a shared Redis
// instance.
func New(client *redis.Client, prefix string) *Backend {
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) redisKey(key vfcache.Key) string {
	return fmt.Sprintf("%svegafusion:cache:%x:%x", b.prefix, key.IDFingerprint, key.StateFingerprint)
}

// Get fetches and decodes the value stored for key, reporting false if
// absent.
func (b *Backend) Get(ctx context.Context, key vfcache.Key) (vfvalue.TaskValue, bool, error) {
	raw, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if err == redis.Nil {
		return vfvalue.TaskValue{}, false, nil
	}
	if err != nil {
		return vfvalue.TaskValue{}, false, vferrors.Wrap(vferrors.KindExternal, "redis cache get", err)
	}
	var v vfvalue.TaskValue
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&v); err != nil {
		return vfvalue.TaskValue{}, false, vferrors.Wrap(vferrors.KindInternal, "decoding cached task value", err)
	}
	return v, true, nil
}

// Set encodes and stores value under key with no expiration; eviction is
// left to the in-process LRU layered in front of this backend
// (internal/vfcache.Cache), which only ever writes through on a local
// miss that this backend can then serve to other instances.
func (b *Backend) Set(ctx context.Context, key vfcache.Key, value vfvalue.TaskValue) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(value); err != nil {
		return vferrors.Wrap(vferrors.KindInternal, "encoding task value for redis cache", err)
	}
	if err := b.client.Set(ctx, b.redisKey(key), buf.Bytes(), 0).Err(); err != nil {
		return vferrors.Wrap(vferrors.KindExternal, "redis cache set", err)
	}
	return nil
}

// Delete evicts key's entry, if present.
func (b *Backend) Delete(ctx context.Context, key vfcache.Key) error {
	if err := b.client.Del(ctx, b.redisKey(key)).Err(); err != nil {
		return vferrors.Wrap(vferrors.KindExternal, "redis cache delete", err)
	}
	return nil
}
