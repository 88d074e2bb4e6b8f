package server

import (
	"context"
	"fmt"
	"time"

	loader "github.com/bionicotaku/lingo-services-social/internal/infrastructure/config_loader"
	"github.com/go-kratos/kratos/v2/log"
	kmetrics "github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexp "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	defaultMeterName     = "lingo-services-social"
	meterShutdownTimeout = 5 * time.Second
)

// Telemetry 持有 HTTP 中间件使用的请求指标以及 /metrics 暴露的 Prometheus 注册表。
// outbox 发布器通过全局 MeterProvider 取得 meter，同样汇入这里的注册表。
type Telemetry struct {
	MeterProvider      *sdkmetric.MeterProvider
	RequestCounter     metric.Int64Counter
	SecondsHistogram   metric.Float64Histogram
	PrometheusRegistry *prometheus.Registry
}

// NewTelemetry 构建 Prometheus 导出器与 MeterProvider，并设为全局。
//
// 指标资源带上服务名、版本、环境与实例 ID，多实例部署时可以区分来源。
// 返回的 cleanup 会在限时内 flush 并关闭 MeterProvider。
func NewTelemetry(meta loader.ServiceMetadata, logger log.Logger) (*Telemetry, func(), error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	exporter, err := promexp.New(
		promexp.WithRegisterer(registry),
		promexp.WithoutUnits(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	meterName := meta.Name
	if meterName == "" {
		meterName = defaultMeterName
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(serviceResource(meterName, meta)),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithView(kmetrics.DefaultSecondsHistogramView(kmetrics.DefaultServerSecondsHistogramName)),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter(meterName, metric.WithInstrumentationVersion(meta.Version))
	requests, err := kmetrics.DefaultRequestsCounter(meter, kmetrics.DefaultServerRequestsCounterName)
	if err != nil {
		return nil, nil, fmt.Errorf("create request counter: %w", err)
	}
	seconds, err := kmetrics.DefaultSecondsHistogram(meter, kmetrics.DefaultServerSecondsHistogramName)
	if err != nil {
		return nil, nil, fmt.Errorf("create latency histogram: %w", err)
	}

	helper := log.NewHelper(logger)
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), meterShutdownTimeout)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			helper.Warnf("shutdown meter provider: %v", err)
		}
	}

	return &Telemetry{
		MeterProvider:      mp,
		RequestCounter:     requests,
		SecondsHistogram:   seconds,
		PrometheusRegistry: registry,
	}, cleanup, nil
}

// serviceResource 只写入非空字段。
func serviceResource(name string, meta loader.ServiceMetadata) *resource.Resource {
	attrs := []attribute.KeyValue{attribute.String("service.name", name)}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("service.version", meta.Version))
	}
	if meta.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", meta.Environment))
	}
	if meta.InstanceID != "" {
		attrs = append(attrs, attribute.String("service.instance.id", meta.InstanceID))
	}
	return resource.NewSchemaless(attrs...)
}
