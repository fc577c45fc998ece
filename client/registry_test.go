package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRegistry() *nodeRegistry {
	return newNodeRegistry([]HostPort{
		{Host: "a", Port: 9160},
		{Host: "b", Port: 9160},
		{Host: "c", Port: 9170},
	})
}

func TestRegistryRoundRobinWraps(t *testing.T) {
	r := testRegistry()

	var seen []string
	for i := 0; i < 7; i++ {
		seen = append(seen, r.next().addr())
	}
	require.Equal(t, []string{
		"a:9160", "b:9160", "c:9170",
		"a:9160", "b:9160", "c:9170",
		"a:9160",
	}, seen)
}

func TestRegistryBlacklistExpires(t *testing.T) {
	r := testRegistry()
	n := r.next()
	now := time.Now()

	r.blacklist(n, now, 10*time.Second)
	require.False(t, r.isUsable(n, now))
	require.False(t, r.isUsable(n, now.Add(9*time.Second)))
	require.True(t, r.isUsable(n, now.Add(10*time.Second)))
}

func TestRegistryBlacklistDefaultsHold(t *testing.T) {
	r := testRegistry()
	n := r.next()
	now := time.Now()

	r.blacklist(n, now, 0)
	require.False(t, r.isUsable(n, now.Add(DefaultHoldDuration-time.Millisecond)))
	require.True(t, r.isUsable(n, now.Add(DefaultHoldDuration)))
}

func TestRegistryNodeNeverRemoved(t *testing.T) {
	r := testRegistry()
	n := r.next()
	r.blacklist(n, time.Now(), time.Minute)

	// Rotation still visits the held node; usability is a separate check.
	require.Equal(t, 3, r.size())
	addrs := map[string]bool{}
	for i := 0; i < 3; i++ {
		addrs[r.next().addr()] = true
	}
	require.Len(t, addrs, 3)
}
