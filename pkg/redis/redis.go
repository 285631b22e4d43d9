// Package redis builds the go-redis client with pool options validated up
// front.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	_defaultPoolSize    = 20
	_defaultMinIdle     = 10
	_defaultPoolTimeout = 100 * time.Millisecond
	_pingTimeout        = 3 * time.Second
)

type options struct {
	poolSize    int
	minIdleCons int
	poolTimeout time.Duration
}

type Option func(*options)

func PoolSize(size int) Option {
	return func(o *options) {
		o.poolSize = size
	}
}

func MinIdleCons(cons int) Option {
	return func(o *options) {
		o.minIdleCons = cons
	}
}

func PoolTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.poolTimeout = timeout
	}
}

func (o *options) validate() error {
	if o.poolSize <= 0 {
		return errors.New("invalid poolSize: must be > 0")
	}
	if o.minIdleCons <= 0 {
		return errors.New("invalid minIdleCons: must be > 0")
	}
	if o.poolTimeout <= 0 {
		return errors.New("invalid poolTimeout: must be > 0")
	}
	return nil
}

func New(ctx context.Context, addr, password string, opts ...Option) (*goredis.Client, error) {
	const op = "redis.New"

	o := &options{
		poolSize:    _defaultPoolSize,
		minIdleCons: _defaultMinIdle,
		poolTimeout: _defaultPoolTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		PoolSize:     o.poolSize,
		MinIdleConns: o.minIdleCons,
		PoolTimeout:  o.poolTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, _pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	return client, nil
}
