/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type fakeFetcher struct {
	amounts map[string]string
	calls   int
	err     error
}

func (f *fakeFetcher) GetActiveMakingAmount(_ context.Context, maker, token string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.amounts[token], nil
}

func setupRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

func storesUnderTest(t *testing.T) map[string]Store {
	redisStore, _ := setupRedisStore(t, time.Minute)
	return map[string]Store{
		"memory": NewMemoryStore(time.Minute),
		"redis":  redisStore,
	}
}

func TestActiveAmounts_ReadThroughAndInvalidate(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fetcher := &fakeFetcher{amounts: map[string]string{"0xTokenA": "100", "0xTokenB": "5"}}
			amounts := NewActiveAmounts(store, fetcher, 1)

			for i := 0; i < 3; i++ {
				got, err := amounts.Get(ctx, "0xMaker", "0xTokenA")
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if got != "100" {
					t.Fatalf("Get() = %q, want 100", got)
				}
			}
			if fetcher.calls != 1 {
				t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
			}

			fetcher.amounts["0xTokenA"] = "40"
			amounts.Invalidate(ctx, "0xMAKER", "0xtokena")
			if got, _ := amounts.Get(ctx, "0xMaker", "0xTokenA"); got != "40" {
				t.Errorf("Get() after Invalidate = %q, want 40", got)
			}
			if fetcher.calls != 2 {
				t.Errorf("fetcher calls = %d, want 2", fetcher.calls)
			}
		})
	}
}

func TestActiveAmounts_InvalidateMaker(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			fetcher := &fakeFetcher{amounts: map[string]string{"0xA": "1", "0xB": "2"}}
			amounts := NewActiveAmounts(store, fetcher, 1)
			other := NewActiveAmounts(store, fetcher, 1)

			amounts.Get(ctx, "0xMaker", "0xA")
			amounts.Get(ctx, "0xMaker", "0xB")
			other.Get(ctx, "0xOther", "0xA")
			if fetcher.calls != 3 {
				t.Fatalf("fetcher calls = %d, want 3", fetcher.calls)
			}

			amounts.InvalidateMaker(ctx, "0xMaker")

			amounts.Get(ctx, "0xMaker", "0xA")
			amounts.Get(ctx, "0xMaker", "0xB")
			other.Get(ctx, "0xOther", "0xA")
			if fetcher.calls != 5 {
				t.Errorf("fetcher calls = %d, want 5 (other maker stays cached)", fetcher.calls)
			}
		})
	}
}

func TestActiveAmounts_FetchErrorIsNotCached(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{err: errors.New("backend down")}
	amounts := NewActiveAmounts(NewMemoryStore(time.Minute), fetcher, 1)

	if _, err := amounts.Get(ctx, "0xMaker", "0xA"); err == nil {
		t.Fatal("Get() expected error")
	}

	fetcher.err = nil
	fetcher.amounts = map[string]string{"0xA": "9"}
	if got, err := amounts.Get(ctx, "0xMaker", "0xA"); err != nil || got != "9" {
		t.Errorf("Get() = %q, %v; want 9", got, err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Second)
	now := time.Unix(1700000000, 0)
	store.now = func() time.Time { return now }

	key := Key{ChainId: 1, Maker: "0xM", Token: "0xA"}
	store.Set(ctx, key, "10")

	if _, ok, _ := store.Get(ctx, key); !ok {
		t.Fatal("entry should be present before expiry")
	}
	now = now.Add(2 * time.Second)
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Error("entry should expire after ttl")
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := setupRedisStore(t, time.Second)

	key := Key{ChainId: 1, Maker: "0xM", Token: "0xA"}
	if err := store.Set(ctx, key, "10"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	mr.FastForward(2 * time.Second)

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Errorf("Get() after ttl = ok %v, err %v; want miss", ok, err)
	}
}

func TestKey_String(t *testing.T) {
	key := Key{ChainId: 137, Maker: "0xABC", Token: "0xDEF"}
	if got := key.String(); got != "limitorder:active:137:0xabc:0xdef" {
		t.Errorf("Key.String() = %q", got)
	}
}
