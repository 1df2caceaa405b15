package authkit

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voralis/authkit/notify"
	"github.com/voralis/authkit/user"
)

// codeCapture records dispatched messages instead of delivering them.
type codeCapture struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (c *codeCapture) sender() notify.Sender {
	return notify.SenderFunc(func(_ context.Context, msg notify.Message) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.messages = append(c.messages, msg)
		return nil
	})
}

func (c *codeCapture) last(t *testing.T) notify.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		t.Fatal("no message dispatched")
	}
	return c.messages[len(c.messages)-1]
}

// memoryUsers is an in-memory user.Repository. A single mutex serializes
// UpdateLocked callers the way a row lock would.
type memoryUsers struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*user.User)}
}

func cloneUser(u *user.User) *user.User {
	c := *u
	return &c
}

func (m *memoryUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return cloneUser(u), nil
	}
	return nil, nil
}

func (m *memoryUsers) GetByIdentifier(_ context.Context, identifier string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if (u.Email != "" && u.Email == identifier) || (u.Mobile != "" && u.Mobile == identifier) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) GetByFederatedID(_ context.Context, provider user.Provider, federatedID string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.FederatedID(provider) == federatedID {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (m *memoryUsers) Create(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if (u.Email != "" && existing.Email == u.Email) ||
			(u.Mobile != "" && existing.Mobile == u.Mobile) ||
			(u.GoogleID != "" && existing.GoogleID == u.GoogleID) ||
			(u.LinkedinID != "" && existing.LinkedinID == u.LinkedinID) {
			return user.ErrConflict
		}
	}
	m.users[u.ID] = cloneUser(u)
	return nil
}

func (m *memoryUsers) Update(_ context.Context, id string, diff *user.Diff) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	diff.Apply(u)
	return cloneUser(u), nil
}

func (m *memoryUsers) UpdateLocked(_ context.Context, id string, fn func(*user.User) (*user.Diff, error)) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	diff, err := fn(cloneUser(u))
	if err != nil {
		return nil, err
	}
	diff.Apply(u)
	return cloneUser(u), nil
}

func (m *memoryUsers) put(u *user.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = cloneUser(u)
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.EncryptionKey = bytes.Repeat([]byte{0x42}, 32)
	cfg.Cookie.SigningKey = bytes.Repeat([]byte{0x24}, 32)
	cfg.Cookie.Secure = false
	// One period of skew so codes computed just before a window boundary
	// still verify.
	cfg.TOTP.Skew = 1
	return cfg
}

type testEngine struct {
	engine  *Engine
	users   *memoryUsers
	capture *codeCapture
	redis   *miniredis.Miniredis
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	capture := &codeCapture{}
	users := newMemoryUsers()

	engine, err := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithUsers(users).
		WithDispatcher(notify.NewDispatcher(capture.sender(), capture.sender(), zerolog.Nop())).
		WithLogger(zerolog.Nop()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	return &testEngine{engine: engine, users: users, capture: capture, redis: mr}
}

// signIn creates a user directly and issues a session for it.
func (te *testEngine) signIn(t *testing.T, u *user.User) *Actor {
	t.Helper()
	te.users.put(u)

	sess, _, err := te.engine.issueSession(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	return &Actor{Session: sess, User: cloneUser(u)}
}
