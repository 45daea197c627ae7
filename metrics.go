package main

import (
	"idscan/pkg/ocr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// pipeline outcomes used as metric labels
const (
	outcomeOK          = "ok"
	outcomeDecodeError = "decode_error"
	outcomeOCRError    = "ocr_error"
	outcomeTimeout     = "timeout"
)

var (
	documentsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idscan_documents_processed_total",
		Help: "Uploaded document images by pipeline outcome.",
	}, []string{"outcome"})

	fieldsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "idscan_fields_extracted_total",
		Help: "Fields present in extracted records, defaults included.",
	}, []string{"field"})

	pipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "idscan_pipeline_duration_seconds",
		Help:    "Wall time of normalize + OCR + extract for one upload.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)

func observeRecord(rec ocr.Record) {
	for f := range rec {
		fieldsExtracted.WithLabelValues(string(f)).Inc()
	}
}
