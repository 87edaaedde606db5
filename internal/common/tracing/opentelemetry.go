// Package tracing 提供 OpenTelemetry 分布式追踪
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config 追踪配置
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string // OTLP gRPC 地址，为空时输出到 stdout
	SampleRate     float64
	Enabled        bool
}

// Tracer 追踪器包装
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   *Config
}

var defaultTracer = &Tracer{tracer: noop.NewTracerProvider().Tracer(""), config: &Config{}}

// Init 初始化追踪器，未启用时返回空操作追踪器
func Init(cfg *Config) (*Tracer, error) {
	if cfg == nil || !cfg.Enabled {
		if cfg == nil {
			cfg = &Config{}
		}
		defaultTracer = &Tracer{tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName), config: cfg}
		return defaultTracer, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("创建资源失败: %w", err)
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	defaultTracer = &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		config:   cfg,
	}
	return defaultTracer, nil
}

func newExporter(cfg *Config) (sdktrace.SpanExporter, error) {
	if cfg.Endpoint != "" {
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithInsecure(),
		)
		exporter, err := otlptrace.New(context.Background(), client)
		if err != nil {
			return nil, fmt.Errorf("创建 OTLP 导出器失败: %w", err)
		}
		return exporter, nil
	}
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("创建 stdout 导出器失败: %w", err)
	}
	return exporter, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// GetTracer 获取默认追踪器
func GetTracer() *Tracer {
	return defaultTracer
}

// Enabled 是否启用了真实导出
func (t *Tracer) Enabled() bool {
	return t.provider != nil
}

// Shutdown 刷新并关闭追踪器
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// StartSpan 开始一个带属性的 span
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartSpan 使用默认追踪器开始 span
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return defaultTracer.StartSpan(ctx, name, attrs...)
}

// EndSpan 记录错误并结束 span
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// 常用属性键
var (
	AttrStaffID       = attribute.Key("staff.id")
	AttrReservationID = attribute.Key("reservation.id")
	AttrRoomID        = attribute.Key("room.id")
	AttrCategoryID    = attribute.Key("category.id")
	AttrOperation     = attribute.Key("operation")
)

// WithStaffID 员工 ID 属性
func WithStaffID(id int64) attribute.KeyValue {
	return AttrStaffID.Int64(id)
}

// WithReservationID 预订 ID 属性
func WithReservationID(id int64) attribute.KeyValue {
	return AttrReservationID.Int64(id)
}

// WithRoomID 房间 ID 属性
func WithRoomID(id int64) attribute.KeyValue {
	return AttrRoomID.Int64(id)
}

// WithCategoryID 房型 ID 属性
func WithCategoryID(id int64) attribute.KeyValue {
	return AttrCategoryID.Int64(id)
}

// WithOperation 操作属性
func WithOperation(op string) attribute.KeyValue {
	return AttrOperation.String(op)
}
