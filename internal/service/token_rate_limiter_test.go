package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockRedisScripter answers EVALSHA with NOSCRIPT until the script was sent
// once through EVAL, like a server with an empty script cache.
type mockRedisScripter struct {
	loaded   bool
	evals    int
	evalShas int
	lastKeys []string
	lastArgs []interface{}
	result   int64
	err      error
}

type noScriptError string

func (e noScriptError) Error() string { return string(e) }
func (noScriptError) RedisError()     {}

func (m *mockRedisScripter) reply(ctx context.Context, keys []string, args []interface{}) *redis.Cmd {
	m.lastKeys = keys
	m.lastArgs = args
	cmd := redis.NewCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	cmd.SetVal(m.result)
	return cmd
}

func (m *mockRedisScripter) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.evals++
	m.loaded = true
	return m.reply(ctx, keys, args)
}

func (m *mockRedisScripter) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	m.evalShas++
	if !m.loaded || sha1 != redisTokenAllowScript.Hash() {
		cmd := redis.NewCmd(ctx)
		cmd.SetErr(noScriptError("NOSCRIPT No matching script."))
		return cmd
	}
	return m.reply(ctx, keys, args)
}

func (m *mockRedisScripter) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return m.Eval(ctx, script, keys, args...)
}

func (m *mockRedisScripter) EvalShaRO(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	return m.EvalSha(ctx, sha1, keys, args...)
}

func (m *mockRedisScripter) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	cmd := redis.NewBoolSliceCmd(ctx)
	out := make([]bool, len(hashes))
	for i := range hashes {
		out[i] = m.loaded
	}
	cmd.SetVal(out)
	return cmd
}

func (m *mockRedisScripter) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	m.loaded = true
	cmd := redis.NewStringCmd(ctx)
	cmd.SetVal(redisTokenAllowScript.Hash())
	return cmd
}

func TestRedisTokenRateLimiterAllow(t *testing.T) {
	ctx := context.Background()

	t.Run("nil receiver fail-open", func(t *testing.T) {
		var l *redisTokenRateLimiter
		if !l.Allow(ctx, "john") {
			t.Fatalf("expected fail-open for nil limiter")
		}
	})

	t.Run("empty key rejected", func(t *testing.T) {
		l := &redisTokenRateLimiter{client: &mockRedisScripter{result: 1}, window: time.Minute, max: 3, prefix: "usersvc:token:rl:"}
		if l.Allow(ctx, "   ") {
			t.Fatalf("expected empty key to be rejected")
		}
	})

	t.Run("allow when count within max", func(t *testing.T) {
		mock := &mockRedisScripter{result: 2}
		l := &redisTokenRateLimiter{client: mock, window: 90 * time.Second, max: 3, prefix: "usersvc:token:rl:"}
		if !l.Allow(ctx, " John ") {
			t.Fatalf("expected allow when count <= max")
		}
		if len(mock.lastKeys) != 1 || mock.lastKeys[0] != "usersvc:token:rl:john" {
			t.Fatalf("unexpected key normalization, got %+v", mock.lastKeys)
		}
		if len(mock.lastArgs) != 1 || mock.lastArgs[0] != int64(90000) {
			t.Fatalf("expected TTL ms=90000, got %+v", mock.lastArgs)
		}
	})

	t.Run("script cached after first run", func(t *testing.T) {
		mock := &mockRedisScripter{result: 1}
		l := &redisTokenRateLimiter{client: mock, window: time.Minute, max: 3, prefix: "usersvc:token:rl:"}
		for i := 0; i < 3; i++ {
			if !l.Allow(ctx, "john") {
				t.Fatalf("expected allow on call %d", i)
			}
		}
		if mock.evals != 1 {
			t.Fatalf("expected the script body to be sent once, got %d", mock.evals)
		}
		if mock.evalShas != 3 {
			t.Fatalf("expected every call to try EVALSHA, got %d", mock.evalShas)
		}
	})

	t.Run("deny when count exceeds max", func(t *testing.T) {
		l := &redisTokenRateLimiter{client: &mockRedisScripter{result: 4}, window: time.Minute, max: 3, prefix: "usersvc:token:rl:"}
		if l.Allow(ctx, "john") {
			t.Fatalf("expected deny when count > max")
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		l := &redisTokenRateLimiter{
			client: &mockRedisScripter{err: errors.New("redis down")},
			logger: zap.New(core),
			window: time.Minute,
			max:    3,
			prefix: "usersvc:token:rl:",
		}
		if !l.Allow(ctx, "john") {
			t.Fatalf("expected fail-open on redis errors")
		}
		if logs.FilterMessage("token rate limiter unavailable, allowing").Len() != 1 {
			t.Fatalf("expected the fail-open to be logged")
		}
	})

	t.Run("nil client constructor", func(t *testing.T) {
		if NewRedisTokenRateLimiter(nil, nil, "x:", time.Minute, 3) != nil {
			t.Fatalf("expected nil limiter without client")
		}
	})
}

func TestMemoryTokenRateLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := NewTokenRateLimiter(time.Minute, 2).(*memoryTokenRateLimiter)
	l.now = func() time.Time { return now }

	if !l.Allow(ctx, "john") || !l.Allow(ctx, "JOHN ") {
		t.Fatalf("expected first two hits to pass")
	}
	if l.Allow(ctx, "john") {
		t.Fatalf("expected third hit inside the window to be denied")
	}
	if !l.Allow(ctx, "jane") {
		t.Fatalf("keys must be counted separately")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow(ctx, "john") {
		t.Fatalf("expected hits to expire after the window")
	}
	if l.Allow(ctx, "") {
		t.Fatalf("expected empty key to be rejected")
	}
}
