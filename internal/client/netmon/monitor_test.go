package netmon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openscribe/consult-api/internal/client/netmon"
)

func TestStatusReachable(t *testing.T) {
	assert.True(t, netmon.StatusOnline.Reachable())
	assert.True(t, netmon.StatusSlow.Reachable())
	assert.False(t, netmon.StatusOffline.Reachable())
}

func TestMonitorDetectsOnline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := netmon.NewMonitor(netmon.Config{
		ProbeURL:      srv.URL,
		ProbeInterval: time.Hour,
	})
	require.Equal(t, netmon.StatusOffline, m.Status())

	ch, cancel := m.Subscribe()
	defer cancel()

	m.Start(context.Background())
	defer m.Stop()

	select {
	case status := <-ch:
		assert.Equal(t, netmon.StatusOnline, status)
	case <-time.After(5 * time.Second):
		t.Fatal("no status change observed")
	}
	assert.Equal(t, netmon.StatusOnline, m.Status())
}

func TestMonitorDetectsOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := netmon.NewMonitor(netmon.Config{
		ProbeURL:      srv.URL,
		ProbeInterval: time.Hour,
	})
	m.Start(context.Background())
	m.Stop()

	assert.Equal(t, netmon.StatusOffline, m.Status())
}

func TestMonitorDetectsSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := netmon.NewMonitor(netmon.Config{
		ProbeURL:      srv.URL,
		ProbeInterval: time.Hour,
		SlowThreshold: 10 * time.Millisecond,
	})
	m.Start(context.Background())
	m.Stop()

	assert.Equal(t, netmon.StatusSlow, m.Status())
}

func TestSetNotifiesOnChangeOnly(t *testing.T) {
	m := netmon.NewMonitor(netmon.Config{ProbeURL: "http://127.0.0.1:1"})

	ch, cancel := m.Subscribe()
	defer cancel()

	m.Set(netmon.StatusOnline)
	m.Set(netmon.StatusOnline)
	m.Set(netmon.StatusOffline)

	assert.Equal(t, netmon.StatusOnline, <-ch)
	assert.Equal(t, netmon.StatusOffline, <-ch)

	select {
	case status := <-ch:
		t.Fatalf("unexpected extra notification: %s", status)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	m := netmon.NewMonitor(netmon.Config{ProbeURL: "http://127.0.0.1:1"})

	ch, cancel := m.Subscribe()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// Status changes after cancel do not panic on the closed channel
	m.Set(netmon.StatusOnline)
}
