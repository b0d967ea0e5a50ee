package syscall

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMutexRegistryLockUnlock(t *testing.T) {
	r := NewMutexRegistry()
	id := r.Create()
	require.NoError(t, r.Lock(id))
	require.NoError(t, r.Unlock(id))
}

func TestMutexRegistryUnknownIDErrors(t *testing.T) {
	r := NewMutexRegistry()
	require.Error(t, r.Lock(999))
}

func TestRWLockRegistryReadersAndWriter(t *testing.T) {
	r := NewRWLockRegistry()
	id := r.Create()
	require.NoError(t, r.RLock(id))
	require.NoError(t, r.RUnlock(id))
	require.NoError(t, r.Lock(id))
	require.NoError(t, r.Unlock(id))
}

func TestSemaphoreAcquireBlocksUntilRelease(t *testing.T) {
	r := NewSemaphoreRegistry()
	id := r.Create(0)

	done := make(chan struct{})
	go func() {
		require.NoError(t, r.Acquire(id))
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("acquire returned before a release was issued")
	default:
	}

	require.NoError(t, r.Release(id))
	<-done
}

func TestCondRegistrySignalAndBroadcastWithNoWaiters(t *testing.T) {
	var mu sync.Mutex
	r := NewCondRegistry()
	id := r.Create(&mu)

	require.NoError(t, r.Signal(id))
	require.NoError(t, r.Broadcast(id))
}

func TestCondRegistryUnknownIDErrors(t *testing.T) {
	r := NewCondRegistry()
	require.Error(t, r.Signal(999))
	require.Error(t, r.Wait(999))
}
