package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings. A failed ping closes the client and
// returns the error so callers can fall back to Memory.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return client, nil
}

// Redis shares the order cache between API replicas.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultOrderTTL
	}
	return &Redis{client: client, ttl: ttl, prefix: "order:booking:", now: time.Now}
}

func (r *Redis) WithClock(now func() time.Time) *Redis {
	r.now = now
	return r
}

func (r *Redis) key(bookingID int64) string {
	return fmt.Sprintf("%s%d", r.prefix, bookingID)
}

func (r *Redis) Get(ctx context.Context, bookingID int64) (Order, bool, error) {
	raw, err := r.client.Get(ctx, r.key(bookingID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Order{}, false, nil
	}
	if err != nil {
		return Order{}, false, err
	}

	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return Order{}, false, fmt.Errorf("decode cached order: %w", err)
	}
	return o, true, nil
}

func (r *Redis) Set(ctx context.Context, bookingID int64, order Order) error {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = r.now()
	}
	raw, err := json.Marshal(order)
	if err != nil {
		return err
	}
	// the entry lives ttl from order creation, not from this write
	ttl := r.ttl - r.now().Sub(order.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, r.key(bookingID), raw, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, bookingID int64) error {
	return r.client.Del(ctx, r.key(bookingID)).Err()
}
