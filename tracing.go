// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package quoll

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func (r *Relay) setupTracing() error {
	ctx := context.Background()

	// Set up propagator
	prop := propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
	otel.SetTextMapPropagator(prop)

	// Set up trace provider
	tracerProvider, err := r.newTraceProvider(ctx)
	if err != nil {
		err = errors.Join(err, r.shutdownTracing(ctx))
		return err
	}
	r.shutdownFuncs = append(r.shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	return nil
}

func (r *Relay) shutdownTracing(ctx context.Context) error {
	var err error
	for _, fn := range r.shutdownFuncs {
		err = errors.Join(err, fn(ctx))
	}
	r.shutdownFuncs = nil
	return err
}

func (r *Relay) newTraceProvider(
	ctx context.Context,
) (*sdktrace.TracerProvider, error) {
	var traceExporter sdktrace.SpanExporter
	var err error
	if r.config.tracingStdout {
		traceExporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	} else {
		// This uses the OTEL_EXPORTER_OTLP_* env vars to configure the
		// exporter endpoint
		traceExporter, err = otlptracehttp.New(ctx)
	}
	if err != nil {
		return nil, err
	}

	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
	)
	return traceProvider, nil
}
