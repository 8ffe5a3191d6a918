// Package ingest turns raw tool events into imported activities. A
// per-source Normalizer owns the interpretation of its tool's payload; the
// redis-stream queue decouples webhook receipt from the import pipeline so
// connector bursts never block the edge; the Worker drains the stream,
// normalizes each envelope, and routes it through the activity import
// command so enrichment, dedupe, and auditing stay in one place.
package ingest
