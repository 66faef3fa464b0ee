package archive

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const pkgname = "github.com/scar-format/scar/archive"

var (
	tracer       trace.Tracer
	meter        metric.Meter
	archiveCount metric.Int64Counter
)

func init() {
	tracer = otel.Tracer(pkgname)
	meter = otel.Meter(pkgname)
	var err error
	archiveCount, err = meter.Int64Counter("scar.archive.count",
		metric.WithDescription("Number of archive.Writer/Reader instances created, by operation and codec."))
	if err != nil {
		panic(err)
	}
}
