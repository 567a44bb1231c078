package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firebase.google.com/go/v4/auth"
)

// Identity is the slice of the identity provider the account flows need.
type Identity interface {
	DeleteUser(ctx context.Context, uid string) error
	CreatedAt(ctx context.Context, uid string) (time.Time, error)
}

// FirebaseIdentity backs Identity with the Firebase Admin auth client.
type FirebaseIdentity struct {
	client *auth.Client
}

func NewFirebaseIdentity(client *auth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

func (f *FirebaseIdentity) DeleteUser(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete identity %s: %w", uid, err)
	}
	return nil
}

func (f *FirebaseIdentity) CreatedAt(ctx context.Context, uid string) (time.Time, error) {
	u, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return time.Time{}, ErrUserNotFound
		}
		return time.Time{}, err
	}
	return time.UnixMilli(u.UserMetadata.CreationTimestamp), nil
}

// MemoryIdentity keeps identities in process for AUTH_MODE=dev. Unknown uids
// are registered on first sight.
type MemoryIdentity struct {
	mu      sync.Mutex
	created map[string]time.Time
}

func NewMemoryIdentity() *MemoryIdentity {
	return &MemoryIdentity{created: make(map[string]time.Time)}
}

// Register records uid as created at the given time.
func (m *MemoryIdentity) Register(uid string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created[uid] = at
}

func (m *MemoryIdentity) Exists(uid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.created[uid]
	return ok
}

func (m *MemoryIdentity) DeleteUser(ctx context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.created, uid)
	return nil
}

func (m *MemoryIdentity) CreatedAt(ctx context.Context, uid string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.created[uid]
	if !ok {
		at = time.Now()
		m.created[uid] = at
	}
	return at, nil
}
