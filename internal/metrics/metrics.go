package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabroom_messages_sent_total",
			Help: "Messages committed by this tab's own sends",
		},
	)

	MessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabroom_messages_received_total",
			Help: "New messages accepted from other tabs",
		},
	)

	MessagesDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabroom_messages_duplicate_total",
			Help: "Inbound messages dropped because their ID was already logged",
		},
	)

	PreviewLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabroom_preview_lookups_total",
			Help: "Link preview lookups by result",
		},
		[]string{"result"}, // "ok", "empty" or "error"
	)

	DirectoryUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tabroom_directory_users",
			Help: "Users currently known to the presence directory",
		},
	)

	BusEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tabroom_bus_dropped_total",
			Help: "Bus deliveries skipped because a subscriber's buffer was full",
		},
	)

	TransportEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tabroom_transport_events_total",
			Help: "Broadcast events by kind and direction",
		},
		[]string{"kind", "direction"}, // direction: "in" or "out"
	)
)
