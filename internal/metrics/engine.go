package metrics

import (
	"context"
	"time"

	"research-vectordb/internal/vectorstore"
)

// instrumentedEngine records every engine call.
type instrumentedEngine struct {
	next    vectorstore.Engine
	metrics *Metrics
}

// InstrumentEngine wraps engine so each call is counted and timed.
func (m *Metrics) InstrumentEngine(engine vectorstore.Engine) vectorstore.Engine {
	return &instrumentedEngine{next: engine, metrics: m}
}

func (e *instrumentedEngine) Heartbeat(ctx context.Context) error {
	start := time.Now()
	err := e.next.Heartbeat(ctx)
	e.metrics.observeEngine("heartbeat", start, err)
	return err
}

func (e *instrumentedEngine) CreateCollection(ctx context.Context, name string) error {
	start := time.Now()
	err := e.next.CreateCollection(ctx, name)
	e.metrics.observeEngine("create_collection", start, err)
	return err
}

func (e *instrumentedEngine) DeleteCollection(ctx context.Context, name string) error {
	start := time.Now()
	err := e.next.DeleteCollection(ctx, name)
	e.metrics.observeEngine("delete_collection", start, err)
	return err
}

func (e *instrumentedEngine) ListCollections(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := e.next.ListCollections(ctx)
	e.metrics.observeEngine("list_collections", start, err)
	return names, err
}

func (e *instrumentedEngine) CollectionExists(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	exists, err := e.next.CollectionExists(ctx, name)
	e.metrics.observeEngine("collection_exists", start, err)
	return exists, err
}

func (e *instrumentedEngine) Count(ctx context.Context, name string) (int, error) {
	start := time.Now()
	n, err := e.next.Count(ctx, name)
	e.metrics.observeEngine("count", start, err)
	return n, err
}

func (e *instrumentedEngine) Upsert(ctx context.Context, collection string, docs []vectorstore.Document) error {
	start := time.Now()
	err := e.next.Upsert(ctx, collection, docs)
	e.metrics.observeEngine("upsert", start, err)
	if err == nil {
		e.metrics.docsUpserted.Add(float64(len(docs)))
	}
	return err
}

func (e *instrumentedEngine) Query(ctx context.Context, collection string, q vectorstore.Query) ([]vectorstore.Match, error) {
	start := time.Now()
	matches, err := e.next.Query(ctx, collection, q)
	e.metrics.observeEngine("query", start, err)
	return matches, err
}

func (e *instrumentedEngine) DeleteDocument(ctx context.Context, collection, id string) error {
	start := time.Now()
	err := e.next.DeleteDocument(ctx, collection, id)
	e.metrics.observeEngine("delete_document", start, err)
	return err
}

func (e *instrumentedEngine) Reset(ctx context.Context) error {
	start := time.Now()
	err := e.next.Reset(ctx)
	e.metrics.observeEngine("reset", start, err)
	return err
}
