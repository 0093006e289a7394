package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/haivivi/v2v/pkg/kv"
	"github.com/vmihailenco/msgpack/v5"
)

// audioPrefix is the key prefix of cached synthesized audio.
//
//	tts:{model}:{voice}:{locale}:{sha256(text)[:32]} → msgpack AudioEntry
var audioPrefix = kv.Key{"tts"}

// AudioEntry is one cached synthesis result.
type AudioEntry struct {
	Text      string `msgpack:"text"`
	Format    string `msgpack:"format"`
	Audio     []byte `msgpack:"audio"`
	CreatedAt int64  `msgpack:"ts"`
}

// AudioCache stores synthesized audio in a kv.Store so repeated phrases are
// synthesized once.
type AudioCache struct {
	store kv.Store
}

// NewAudioCache returns a cache backed by store.
func NewAudioCache(store kv.Store) *AudioCache {
	return &AudioCache{store: store}
}

// AudioKey returns the cache key for a synthesis request.
func AudioKey(model, voice, locale, text string) kv.Key {
	sum := sha256.Sum256([]byte(text))
	return append(append(kv.Key{}, audioPrefix...),
		keySegment(model), keySegment(voice), keySegment(locale), hex.EncodeToString(sum[:16]))
}

func keySegment(s string) string {
	if s == "" {
		return "_"
	}
	return strings.ReplaceAll(s, string(kv.Separator), "_")
}

// Get returns the cached entry for key, or kv.ErrNotFound.
func (c *AudioCache) Get(ctx context.Context, key kv.Key) (*AudioEntry, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var e AudioEntry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Put stores e under key, stamping its creation time if unset.
func (c *AudioCache) Put(ctx context.Context, key kv.Key, e *AudioEntry) error {
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, key, data)
}

// Stats reports the number of cached entries and their total audio size.
func (c *AudioCache) Stats(ctx context.Context) (entries int, size int64, err error) {
	for entry, err := range c.store.List(ctx, audioPrefix) {
		if err != nil {
			return entries, size, err
		}
		var e AudioEntry
		if err := msgpack.Unmarshal(entry.Value, &e); err != nil {
			continue
		}
		entries++
		size += int64(len(e.Audio))
	}
	return entries, size, nil
}

// Purge removes all cached audio and returns the number of entries removed.
func (c *AudioCache) Purge(ctx context.Context) (int, error) {
	var keys []kv.Key
	for entry, err := range c.store.List(ctx, audioPrefix) {
		if err != nil {
			return 0, err
		}
		keys = append(keys, entry.Key)
	}
	for i, k := range keys {
		if err := c.store.Delete(ctx, k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}
