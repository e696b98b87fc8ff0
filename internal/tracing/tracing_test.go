// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestStartWithoutProvider(t *testing.T) {
	ctx, span := Start(context.Background(), "gbr.fit", attribute.String("response", "sales"))
	if ctx == nil {
		t.Fatal("Start returned a nil context")
	}
	if span.SpanContext().IsValid() {
		t.Errorf("span should be a no-op without a provider")
	}
	End(span, errors.New("degenerate"))

	_, span = Start(context.Background(), "tbr.fit")
	End(span, nil)
}
