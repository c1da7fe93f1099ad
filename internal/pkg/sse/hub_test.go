package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishDeliversToTopicOnly(t *testing.T) {
	hub := NewHub()
	stationCh, stopStation := hub.Subscribe(StationTopic("gate-1"))
	defer stopStation()
	otherCh, stopOther := hub.Subscribe(StationTopic("gate-2"))
	defer stopOther()

	hub.Publish(StationTopic("gate-1"), Event{Event: "scan", Data: "payload"})

	select {
	case ev := <-stationCh:
		assert.Equal(t, "scan", ev.Event)
		assert.Equal(t, "station:gate-1", ev.Topic)
	default:
		t.Fatal("expected event on gate-1")
	}

	select {
	case <-otherCh:
		t.Fatal("gate-2 must not receive gate-1 events")
	default:
	}
}

func TestHub_PublishToMany(t *testing.T) {
	hub := NewHub()
	a, stopA := hub.Subscribe(StationTopic("gate-1"))
	defer stopA()
	b, stopB := hub.Subscribe(EmployeeTopic("emp-1"))
	defer stopB()

	hub.PublishToMany([]string{StationTopic("gate-1"), EmployeeTopic("emp-1")}, Event{Event: "scan"})

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "employee:emp-1", (<-b).Topic)
}

func TestHub_FullSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub()
	_, stop := hub.Subscribe("t")
	defer stop()

	for range hub.bufferSize * 3 {
		hub.Publish("t", Event{Event: "scan"})
	}
	assert.Equal(t, 1, hub.SubscriberCount("t"))
}

func TestHub_CleanupIsIdempotent(t *testing.T) {
	hub := NewHub()
	ch, stop := hub.Subscribe("t")
	assert.Equal(t, 1, hub.TotalSubscribers())

	stop()
	stop()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.TotalSubscribers())
	hub.Publish("t", Event{Event: "scan"})
}
