package environment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// DefaultCachePrefix namespaces cached readings as "env:<city>".
const DefaultCachePrefix = "env"

// ValkeyCache stores readings as JSON strings under "<prefix>:<city>".
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = DefaultCachePrefix
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, city string) (Reading, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(city)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return Reading{}, false, nil
		}
		return Reading{}, false, err
	}
	var r Reading
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return Reading{}, false, fmt.Errorf("decode cached reading: %w", err)
	}
	return r, true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, city string, r Reading, ttl time.Duration) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := c.client.B().Set().Key(c.key(city)).Value(string(payload)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

func (c *ValkeyCache) key(city string) string {
	return fmt.Sprintf("%s:%s", c.prefix, city)
}
