package statuscache

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// valkeyConn adapts a valkey.Client to the narrow conn contract.
type valkeyConn struct {
	rdb valkey.Client
}

func newValkeyConn(addresses []string) (*valkeyConn, error) {
	rdb, err := valkey.NewClient(valkey.ClientOption{InitAddress: addresses})
	if err != nil {
		return nil, fmt.Errorf("statuscache: dial valkey: %w", err)
	}
	return &valkeyConn{rdb: rdb}, nil
}

func (v *valkeyConn) set(ctx context.Context, key, value string, ttl time.Duration) error {
	cmd := v.rdb.B().Set().Key(key).Value(value).Ex(ttl).Build()
	return v.rdb.Do(ctx, cmd).Error()
}

func (v *valkeyConn) get(ctx context.Context, key string) (string, bool, error) {
	cmd := v.rdb.B().Get().Key(key).Build()
	resp := v.rdb.Do(ctx, cmd)

	val, err := resp.ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return val, true, nil
}

func (v *valkeyConn) close() {
	v.rdb.Close()
}
