package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func setupTracingForTest(t *testing.T) context.Context {
	t.Helper()
	ctx := context.Background()
	config := DefaultTracerConfig()
	tp, err := SetupTracing(ctx, config)
	if err != nil {
		t.Fatalf("SetupTracing() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := ShutdownTracing(context.Background(), tp); err != nil {
			t.Errorf("ShutdownTracing() failed: %v", err)
		}
	})
	return ctx
}

func TestStartEncodeSpan(t *testing.T) {
	ctx := setupTracingForTest(t)

	ctx, span := StartEncodeSpan(ctx, "demo", "0.1.0", 1)
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("Span context should be valid")
	}
	_ = ctx
}

func TestStartDecodeSpan(t *testing.T) {
	ctx := setupTracingForTest(t)

	_, span := StartDecodeSpan(ctx, 4096)
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("Span context should be valid")
	}
}

func TestStartSignatureVerifySpan(t *testing.T) {
	ctx := setupTracingForTest(t)

	_, span := StartSignatureVerifySpan(ctx, 0, "FILE")
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("Span context should be valid")
	}
}

func TestStartManifestIngestSpan(t *testing.T) {
	ctx := setupTracingForTest(t)

	_, span := StartManifestIngestSpan(ctx, 512)
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("Span context should be valid")
	}
}

func TestStartRemoteSignSpan(t *testing.T) {
	ctx := setupTracingForTest(t)

	_, span := StartRemoteSignSpan(ctx, "pki.example.internal")
	defer span.End()

	if !span.SpanContext().IsValid() {
		t.Error("Span context should be valid")
	}
}

func TestRecordRetry(t *testing.T) {
	ctx := setupTracingForTest(t)

	ctx, span := StartRemoteSignSpan(ctx, "pki.example.internal")
	defer span.End()

	RecordRetry(ctx, 1, errors.New("connection timeout"))
	RecordRetry(ctx, 2, errors.New("connection timeout"))
}

func TestEndSpanWithError(t *testing.T) {
	ctx := setupTracingForTest(t)

	_, span := StartEncodeSpan(ctx, "demo", "0.1.0", 1)
	EndSpanWithError(span, errors.New("encode failed"))

	_, span = StartEncodeSpan(ctx, "demo", "0.1.0", 1)
	EndSpanWithError(span, nil)
}

func TestTracerName(t *testing.T) {
	expected := "github.com/LeeLiangmin/crate-spec"
	if TracerName != expected {
		t.Errorf("TracerName = %q, want %q", TracerName, expected)
	}
}

func TestAttributeKeys(t *testing.T) {
	tests := []struct {
		name     string
		key      attribute.Key
		expected string
	}{
		{"PackageName", AttrPackageName, "cratespec.package.name"},
		{"PackageVer", AttrPackageVer, "cratespec.package.version"},
		{"SigType", AttrSigType, "cratespec.signature.type"},
		{"SigSlot", AttrSigSlot, "cratespec.signature.slot"},
		{"Operation", AttrOperation, "cratespec.operation"},
		{"RetryCount", AttrRetryCount, "cratespec.retry.count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.key) != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, string(tt.key), tt.expected)
			}
		})
	}
}
