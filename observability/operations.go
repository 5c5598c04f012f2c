package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the tracer name for this repo's encode/decode/sign operations.
	TracerName = "github.com/LeeLiangmin/crate-spec"
)

// Common attribute keys.
const (
	AttrPackageName = attribute.Key("cratespec.package.name")
	AttrPackageVer  = attribute.Key("cratespec.package.version")
	AttrSigType     = attribute.Key("cratespec.signature.type")
	AttrSigSlot     = attribute.Key("cratespec.signature.slot")
	AttrOperation   = attribute.Key("cratespec.operation")
	AttrRetryCount  = attribute.Key("cratespec.retry.count")
)

// StartEncodeSpan starts a span for one package Encode call.
func StartEncodeSpan(ctx context.Context, name, version string, sigCount int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "package.encode",
		trace.WithAttributes(
			AttrPackageName.String(name),
			AttrPackageVer.String(version),
			attribute.Int("cratespec.signature.count", sigCount),
			AttrOperation.String("encode"),
		),
	)
}

// StartDecodeSpan starts a span for one package Decode call.
func StartDecodeSpan(ctx context.Context, sizeBytes int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "package.decode",
		trace.WithAttributes(
			attribute.Int("cratespec.package.size_bytes", sizeBytes),
			AttrOperation.String("decode"),
		),
	)
}

// StartSignatureVerifySpan starts a span for verifying one signature slot.
func StartSignatureVerifySpan(ctx context.Context, slot int, sigType string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "signature.verify",
		trace.WithAttributes(
			AttrSigSlot.Int(slot),
			AttrSigType.String(sigType),
			AttrOperation.String("verify"),
		),
	)
}

// StartManifestIngestSpan starts a span for parsing and validating a manifest.
func StartManifestIngestSpan(ctx context.Context, sizeBytes int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "manifest.ingest",
		trace.WithAttributes(
			attribute.Int("cratespec.manifest.size_bytes", sizeBytes),
			AttrOperation.String("manifest_ingest"),
		),
	)
}

// StartRemoteSignSpan starts a span for one remote-PKI signing RPC.
func StartRemoteSignSpan(ctx context.Context, host string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "remote_sign.request",
		trace.WithAttributes(
			attribute.String("cratespec.remote_sign.host", host),
			AttrOperation.String("remote_sign"),
		),
	)
}

// RecordRetry records a retry attempt on the current span.
func RecordRetry(ctx context.Context, attempt int, err error) {
	span := SpanFromContext(ctx)
	span.AddEvent("retry",
		trace.WithAttributes(
			AttrRetryCount.Int(attempt),
			attribute.String("retry.error", err.Error()),
		),
	)
}

// EndSpanWithError ends a span with an error status, or Ok if err is nil.
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
