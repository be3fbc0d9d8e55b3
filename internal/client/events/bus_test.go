package events

import (
	"testing"

	"github.com/dmitrijs2005/writedesk/internal/client/metrics"
	"github.com/dmitrijs2005/writedesk/internal/client/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	b := NewBus()
	a, cancelA := b.Subscribe()
	defer cancelA()
	c, cancelC := b.Subscribe()
	defer cancelC()

	p := &models.Project{ID: "p1"}
	b.Publish(MutationSucceeded{Op: "create", ID: "p1", Project: p})

	for _, ch := range []<-chan Event{a, c} {
		e := <-ch
		require.IsType(t, MutationSucceeded{}, e)
		assert.Equal(t, "mutation-succeeded", e.Kind())
		assert.Same(t, p, e.(MutationSucceeded).Project)
	}
}

func TestBus_CancelClosesAndStopsDelivery(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe()
	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)

	// must not panic on the closed channel
	b.Publish(SessionExpired{})
}

func TestBus_DropsForSlowSubscriber(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	b := NewBus(WithBuffer(1), WithMetrics(m))
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(CacheError{Op: "create", Message: "first"})
	b.Publish(CacheError{Op: "create", Message: "second"})

	e := <-ch
	assert.Equal(t, CacheError{Op: "create", Message: "first"}, e)
	select {
	case e := <-ch:
		t.Fatalf("unexpected event %v", e)
	default:
	}

	n, err := testutil.GatherAndCount(reg, "writedesk_client_events_dropped_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBus_NilIsNoop(t *testing.T) {
	var b *Bus
	b.Publish(SessionReady{})
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "session-ready", SessionReady{}.Kind())
	assert.Equal(t, "session-expired", SessionExpired{}.Kind())
	assert.Equal(t, "cache-error", CacheError{}.Kind())
}
