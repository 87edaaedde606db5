// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "hotel_reservation"

// Metrics 指标收集器，nil 接收者上的记录方法均为空操作
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	reservationOpsTotal  *prometheus.CounterVec
	bookingConflicts     *prometheus.CounterVec
	sideEffectFailures   *prometheus.CounterVec
	revenueTotal         *prometheus.CounterVec
	mqttMessagesTotal    *prometheus.CounterVec
	smsSentTotal         *prometheus.CounterVec
	roomsByStatus        *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// Init 在默认注册表上初始化指标收集器
func Init(namespace string) *Metrics {
	defaultMetrics = New(namespace, prometheus.DefaultRegisterer)
	return defaultMetrics
}

// New 在指定注册表上创建指标收集器
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		reservationOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservation_operations_total",
				Help:      "Total number of reservation lifecycle operations",
			},
			[]string{"operation", "result"},
		),
		bookingConflicts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "booking_conflicts_total",
				Help:      "Total number of rejected overlapping bookings",
			},
			[]string{"source"},
		),
		sideEffectFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "side_effect_failures_total",
				Help:      "Total number of failed notifications, audit writes and events",
			},
			[]string{"kind"},
		),
		revenueTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_recorded_total",
				Help:      "Total amount recorded at check-out",
			},
			[]string{"method"},
		),
		mqttMessagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mqtt_messages_total",
				Help:      "Total number of MQTT messages",
			},
			[]string{"topic", "result"},
		),
		smsSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sms_sent_total",
				Help:      "Total number of SMS notifications",
			},
			[]string{"template", "result"},
		),
		roomsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rooms_by_status",
				Help:      "Number of active rooms per housekeeping status",
			},
			[]string{"status"},
		),
	}
}

// GetMetrics 获取默认指标收集器
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		return Init("")
	}
	return defaultMetrics
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 跳过 metrics 端点本身
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordReservationOp 记录预订操作结果
func (m *Metrics) RecordReservationOp(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reservationOpsTotal.WithLabelValues(operation, result).Inc()
}

// RecordBookingConflict 记录预订冲突，source 为 check 或 constraint
func (m *Metrics) RecordBookingConflict(source string) {
	if m == nil {
		return
	}
	m.bookingConflicts.WithLabelValues(source).Inc()
}

// RecordSideEffectFailure 记录副作用失败
func (m *Metrics) RecordSideEffectFailure(kind string) {
	if m == nil {
		return
	}
	m.sideEffectFailures.WithLabelValues(kind).Inc()
}

// RecordRevenue 记录退房收款
func (m *Metrics) RecordRevenue(method string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.revenueTotal.WithLabelValues(method).Add(amount)
}

// RecordMQTTMessage 记录 MQTT 消息
func (m *Metrics) RecordMQTTMessage(topic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mqttMessagesTotal.WithLabelValues(topic, result).Inc()
}

// RecordSMS 记录短信发送
func (m *Metrics) RecordSMS(template string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.smsSentTotal.WithLabelValues(template, result).Inc()
}

// SetRoomsByStatus 设置各状态房间数
func (m *Metrics) SetRoomsByStatus(status string, count float64) {
	if m == nil {
		return
	}
	m.roomsByStatus.WithLabelValues(status).Set(count)
}
