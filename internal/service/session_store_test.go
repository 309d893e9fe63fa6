package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/taskdesk/internal/domain/auth"
)

func TestSessionStore_InitialSignedOut(t *testing.T) {
	store, _ := NewSessionStore()

	got := store.GetCurrent()
	assert.Equal(t, domainauth.SessionSignedOut, got.State)
	assert.Nil(t, got.User)
}

func TestSessionStore_PublishAfterWriteIsVisible(t *testing.T) {
	store, writer := NewSessionStore()

	var seen []domainauth.Session
	store.Subscribe(func(s domainauth.Session) {
		// The write must already be visible to readers when subscribers run.
		assert.Equal(t, s, store.GetCurrent())
		seen = append(seen, s)
	})

	writer.SetAuthenticated(domainauth.Credential{ProviderID: "u1", Email: "a@example.com"})
	writer.Clear()

	require.Len(t, seen, 2)
	assert.Equal(t, "u1", seen[0].IdentityKey())
	assert.False(t, seen[1].IsAuthenticated())
}

func TestSessionStore_SubscriberOrder(t *testing.T) {
	store, writer := NewSessionStore()

	var order []int
	for i := range 3 {
		store.Subscribe(func(domainauth.Session) { order = append(order, i) })
	}
	writer.SetAuthenticated(domainauth.Credential{ProviderID: "u1"})

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestSessionStore_ClearWhenSignedOutPublishesNothing(t *testing.T) {
	store, writer := NewSessionStore()
	calls := 0
	store.Subscribe(func(domainauth.Session) { calls++ })

	writer.Clear()
	assert.Equal(t, 0, calls)
}

func TestSessionStore_Unsubscribe(t *testing.T) {
	store, writer := NewSessionStore()
	calls := 0
	unsubscribe := store.Subscribe(func(domainauth.Session) { calls++ })
	assert.Equal(t, 1, store.SubscriberCount())

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, store.SubscriberCount())

	writer.SetAuthenticated(domainauth.Credential{ProviderID: "u1"})
	assert.Equal(t, 0, calls)
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	store, writer := NewSessionStore()
	writer.SetAuthenticated(domainauth.Credential{ProviderID: "u1", Email: "a@example.com"})

	got := store.GetCurrent()
	got.User.Email = "mutated@example.com"

	assert.Equal(t, "a@example.com", store.GetCurrent().User.Email)
}

func TestSessionStore_SingleIdentityLastWriteWins(t *testing.T) {
	store, writer := NewSessionStore()

	var last string
	var mu sync.Mutex
	store.Subscribe(func(s domainauth.Session) {
		mu.Lock()
		last = s.IdentityKey()
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for _, id := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			writer.SetAuthenticated(domainauth.Credential{ProviderID: id})
		}()
	}
	wg.Wait()

	// Whatever landed last is what both the store and the final publish agree on.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, store.GetCurrent().IdentityKey(), last)
	assert.Contains(t, []string{"a", "b", "c", "d"}, last)
}

func TestSessionWriter_ClearIf(t *testing.T) {
	store, writer := NewSessionStore()
	writer.SetAuthenticated(domainauth.Credential{ProviderID: "u1"})

	isU2 := func(s domainauth.Session) bool { return s.IdentityKey() == "u2" }
	assert.False(t, writer.ClearIf(isU2))
	assert.True(t, store.GetCurrent().IsAuthenticated())

	isU1 := func(s domainauth.Session) bool { return s.IdentityKey() == "u1" }
	assert.True(t, writer.ClearIf(isU1))
	assert.False(t, store.GetCurrent().IsAuthenticated())
	assert.False(t, writer.ClearIf(isU1))
}
