package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadbuddy_messages_sent_total",
		Help: "Messages stored through the API",
	})
	MessagesMarkedRead = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "acadbuddy_messages_marked_read_total",
		Help: "Messages whose read_at was set",
	})
	RealtimeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acadbuddy_realtime_events_total",
		Help: "Message insert events received from the change feed",
	}, []string{"driver"})
	RealtimeSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "acadbuddy_realtime_subscribers",
		Help: "Open websocket subscribers",
	})
	AssistantRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "acadbuddy_assistant_requests_total",
		Help: "Study assistant requests by response status",
	}, []string{"status"})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			MessagesSent,
			MessagesMarkedRead,
			RealtimeEvents,
			RealtimeSubscribers,
			AssistantRequests,
		)
	})
}

// Handler exposes the default registry for scraping.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
