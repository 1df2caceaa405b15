package authkit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/notify"
)

func TestBuildRequiresDependencies(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	dispatcher := notify.NewDispatcher(nil, nil, zerolog.Nop())

	tests := []struct {
		name    string
		builder *Builder
		wantMsg string
	}{
		{
			name:    "missing redis",
			builder: New().WithConfig(testConfig()).WithUsers(newMemoryUsers()).WithDispatcher(dispatcher),
			wantMsg: "redis",
		},
		{
			name:    "missing users",
			builder: New().WithConfig(testConfig()).WithRedis(client).WithDispatcher(dispatcher),
			wantMsg: "user repository",
		},
		{
			name:    "missing dispatcher",
			builder: New().WithConfig(testConfig()).WithRedis(client).WithUsers(newMemoryUsers()),
			wantMsg: "dispatcher",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.builder.Build(); err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Fatalf("got %v, want error mentioning %q", err, tt.wantMsg)
			}
		})
	}
}

func TestBuildValidatesKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := testConfig()
	cfg.EncryptionKey = []byte("short")

	_, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithUsers(newMemoryUsers()).
		WithDispatcher(notify.NewDispatcher(nil, nil, zerolog.Nop())).
		Build()
	if err == nil || !strings.Contains(err.Error(), "encryption key") {
		t.Fatalf("got %v, want encryption key error", err)
	}
}

func TestEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.RequestOTP(context.Background(), "ada@example.com"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("got %v, want ErrEngineNotReady", err)
	}
}
