//go:build consul

package agent

import (
	"context"
	"strconv"
	"time"

	consulapi "github.com/hashicorp/consul/api"
)

// WatchEnabled returns true when consul tag is on.
func WatchEnabled() bool { return true }

// StartConsulWatch follows the trigger key and calls onChange whenever its
// value moves, so an operator (or another daemon that just re-keyed a peer)
// can force an immediate reconciliation pass.
func StartConsulWatch(ctx context.Context, addr string, token string, onChange func(generation int64)) error {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	if token != "" {
		cfg.Token = token
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return err
	}
	go func() {
		q := &consulapi.QueryOptions{}
		key := "wg-pmtud/trigger"
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			kv, meta, err := cli.KV().Get(key, q)
			if err == nil && kv != nil {
				if g, parseErr := strconv.ParseInt(string(kv.Value), 10, 64); parseErr == nil {
					onChange(g)
				}
				q.WaitIndex = meta.LastIndex
			} else {
				time.Sleep(time.Second)
			}
		}
	}()
	return nil
}
