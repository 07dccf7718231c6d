package redis

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/listini-pricing/pkg/config"
)

func TestArticleVersionLifecycle(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	version, err := client.ArticleVersion(ctx, "article-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 for unknown article, got %d", version)
	}

	for want := int64(1); want <= 2; want++ {
		got, err := client.BumpArticleVersion(ctx, "article-1")
		if err != nil {
			t.Fatalf("bump failed: %v", err)
		}
		if got != want {
			t.Fatalf("expected version %d, got %d", want, got)
		}
	}
	version, err = client.ArticleVersion(ctx, "article-1")
	if err != nil || version != 2 {
		t.Fatalf("expected version 2, got %d (%v)", version, err)
	}

	mock.data["listini:article_version:broken"] = "nope"
	if _, err := client.ArticleVersion(ctx, "broken"); err == nil {
		t.Fatal("expected parse error for corrupt version")
	}
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.TiersKey("article-1", 0)
	if err := client.Set(ctx, key, `{"tiers":[]}`, time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	got, err := client.Get(ctx, key)
	if err != nil || got != `{"tiers":[]}` {
		t.Fatalf("unexpected get %q (%v)", got, err)
	}
	if mock.ttls[key] != time.Minute {
		t.Fatalf("expected ttl to be forwarded, got %s", mock.ttls[key])
	}

	if err := client.Del(ctx, key); err != nil {
		t.Fatalf("del failed: %v", err)
	}
	if _, err := client.Get(ctx, key); !IsMiss(err) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on empty client should be a no-op, got %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.TiersKey("a1", 2); got != "listini:tiers:a1:v2" {
		t.Fatalf("unexpected tiers key %s", got)
	}
	if got := client.CalculatedKey("a1", 3, "c9"); got != "listini:calc:a1:v3:c9" {
		t.Fatalf("unexpected calculated key %s", got)
	}
	if got := client.buildKey("calc", " ", "a1"); got != "listini:calc:a1" {
		t.Fatalf("blank parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", DB: 1, DialTimeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Addr != "cache:6379" || opts.DB != 1 || opts.DialTimeout != time.Second {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttls: make(map[string]time.Duration),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	current, _ := strconv.ParseInt(m.data[key], 10, 64)
	current++
	m.data[key] = strconv.FormatInt(current, 10)
	return redis.NewIntResult(current, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
