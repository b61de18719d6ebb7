package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

const prefix = "tilecut"

// Valkey stores tiles in a Valkey (Redis compatible) server. Tile bodies
// expire after the configured TTL; the zoom, column and row index sets do
// not.
type Valkey struct {
	client valkey.Client
	ttl    time.Duration
}

// NewValkey connects to the server at addr. A zero ttl keeps tiles forever.
func NewValkey(addr string, ttl time.Duration) (*Valkey, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &Valkey{client: client, ttl: ttl}, nil
}

func tileKey(k tile.Key, f raster.Format) string {
	return fmt.Sprintf("%s:tile:%s:%s", prefix, f, tile.ToKeyspace(k))
}

func zoomsKey() string { return prefix + ":zooms" }

func columnsKey(zoom uint32) string { return fmt.Sprintf("%s:z:%d:x", prefix, zoom) }

func rowsKey(zoom uint32) string { return fmt.Sprintf("%s:z:%d:y", prefix, zoom) }

func (c *Valkey) Get(ctx context.Context, k tile.Key, f raster.Format) ([]byte, bool, error) {
	b, err := c.client.Do(ctx, c.client.B().Get().Key(tileKey(k, f)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (c *Valkey) Put(ctx context.Context, k tile.Key, f raster.Format, data []byte) error {
	set := c.client.B().Set().Key(tileKey(k, f)).Value(valkey.BinaryString(data))
	var cmd valkey.Completed
	if c.ttl > 0 {
		cmd = set.Ex(c.ttl).Build()
	} else {
		cmd = set.Build()
	}

	z := strconv.FormatUint(uint64(k.Zoom), 10)
	cmds := valkey.Commands{
		cmd,
		c.client.B().Sadd().Key(zoomsKey()).Member(z).Build(),
		c.client.B().Sadd().Key(columnsKey(k.Zoom)).Member(strconv.FormatUint(uint64(k.X), 10)).Build(),
		c.client.B().Sadd().Key(rowsKey(k.Zoom)).Member(strconv.FormatUint(uint64(k.Y), 10)).Build(),
	}
	for _, resp := range c.client.DoMulti(ctx, cmds...) {
		if err := resp.Error(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Valkey) Zooms(ctx context.Context) ([]uint32, error) {
	return c.members(ctx, zoomsKey())
}

func (c *Valkey) Columns(ctx context.Context, zoom uint32) ([]uint32, error) {
	return c.members(ctx, columnsKey(zoom))
}

func (c *Valkey) Rows(ctx context.Context, zoom uint32) ([]uint32, error) {
	return c.members(ctx, rowsKey(zoom))
}

func (c *Valkey) members(ctx context.Context, key string) ([]uint32, error) {
	strs, err := c.client.Do(ctx, c.client.B().Smembers().Key(key).Build()).AsStrSlice()
	if err != nil {
		return nil, err
	}
	set := make(map[uint32]struct{}, len(strs))
	for _, s := range strs {
		v, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("member %q of %s: %w", s, key, err)
		}
		set[uint32(v)] = struct{}{}
	}
	return sorted(set), nil
}

// Ping checks the connection.
func (c *Valkey) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *Valkey) Close() {
	c.client.Close()
}
