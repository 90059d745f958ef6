package app

import (
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hitoshi/newsletter/internal/config"
)

// serviceName はトレースのリソース属性service.nameに設定する値。
const serviceName = "newsletter"

// newTracerProvider はOTEL_TRACES_EXPORTERに応じたTracerProviderを生成し、グローバルに登録する。
// noneの場合もスパンは生成されるがエクスポートはされない。
// 呼び出し側はシャットダウン時にShutdownを呼ぶこと。
func newTracerProvider(cfg *config.Config, w io.Writer) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", serviceName),
		)),
	}

	switch cfg.TracesExporter {
	case config.TracesExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	case config.TracesExporterNone:
	default:
		return nil, fmt.Errorf("unsupported traces exporter %q", cfg.TracesExporter)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp, nil
}
