package schema

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ChangePublisher carries schema change notifications out of the process,
// e.g. over websockets or a message bus.
type ChangePublisher interface {
	Notify(ctx context.Context, actorID uuid.UUID, metadata map[string]any)
}

// Listener observes every refresh of the registry snapshot.
type Listener func(context.Context, Snapshot)

// Snapshot is a moment-in-time export of the registered schemas.
type Snapshot struct {
	GeneratedAt   time.Time
	ResourceNames []string
	Document      map[string]any
}

// Registry aggregates controller metadata into one OpenAPI document so hosts
// can expose a single schema endpoint and react to controller registrations.
type Registry struct {
	mu sync.RWMutex

	providers map[string]router.MetadataProvider
	listeners []Listener
	publisher ChangePublisher

	info             router.OpenAPIInfo
	tags             []string
	relationProvider router.RelationMetadataProvider
	uiOptions        router.UISchemaOptions
	hasUIOptions     bool
}

// Option tweaks registry construction.
type Option func(*Registry)

// NewRegistry builds an empty registry, applying any options.
func NewRegistry(opts ...Option) *Registry {
	reg := &Registry{
		providers: make(map[string]router.MetadataProvider),
		info: router.OpenAPIInfo{
			Title:   "Admin Schemas",
			Version: "1.0.0",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(reg)
		}
	}
	return reg
}

// WithInfo overrides the default OpenAPI info block. Empty fields keep their
// defaults.
func WithInfo(info router.OpenAPIInfo) Option {
	return func(r *Registry) {
		if info.Title != "" {
			r.info = info
		}
		if info.Version != "" {
			r.info.Version = info.Version
		}
		if info.Description != "" {
			r.info.Description = info.Description
		}
	}
}

// WithTags sets global tags stamped on every generated document.
func WithTags(tags ...string) Option {
	return func(r *Registry) {
		if len(tags) == 0 {
			return
		}
		r.tags = append([]string(nil), tags...)
	}
}

// WithRelationProvider supplies relation metadata for the generated documents.
func WithRelationProvider(provider router.RelationMetadataProvider) Option {
	return func(r *Registry) {
		if provider != nil {
			r.relationProvider = provider
		}
	}
}

// WithUISchemaOptions installs callbacks that decorate the UI schema output.
func WithUISchemaOptions(opts router.UISchemaOptions) Option {
	return func(r *Registry) {
		r.uiOptions = opts
		r.hasUIOptions = true
	}
}

// WithPublisher wires an out-of-process notifier invoked on every change.
func WithPublisher(publisher ChangePublisher) Option {
	return func(r *Registry) {
		r.publisher = publisher
	}
}

// Register adds a metadata provider. Registering the same resource name again
// replaces the stored metadata. The metadata is captured eagerly so later
// mutations of the provider do not leak into the registry.
func (r *Registry) Register(provider router.MetadataProvider) {
	if provider == nil {
		return
	}
	metadata := provider.GetMetadata()
	if metadata.Name == "" {
		return
	}
	inputs, listeners, publisher := r.store(frozenProvider{metadata: metadata})
	r.broadcast(context.Background(), inputs, listeners, publisher)
}

// RegisterAll registers multiple providers in order.
func (r *Registry) RegisterAll(providers ...router.MetadataProvider) {
	for _, provider := range providers {
		r.Register(provider)
	}
}

// Subscribe attaches a listener invoked on every registration.
func (r *Registry) Subscribe(listener Listener) {
	if listener == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, listener)
	r.mu.Unlock()
}

// Resources returns the registered resource names in sorted order.
func (r *Registry) Resources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Document compiles the registered providers into one OpenAPI document, or
// nil when nothing is registered yet.
func (r *Registry) Document() map[string]any {
	r.mu.RLock()
	inputs := r.collectLocked()
	r.mu.RUnlock()
	return r.compile(inputs)
}

// Handler serves the aggregated document; 204 while the registry is empty.
func (r *Registry) Handler() router.HandlerFunc {
	return func(ctx router.Context) error {
		doc := r.Document()
		if len(doc) == 0 {
			return ctx.NoContent(http.StatusNoContent)
		}
		return ctx.JSON(http.StatusOK, doc)
	}
}

// store records the provider and returns everything broadcast needs, so the
// lock is released before listeners run.
func (r *Registry) store(provider router.MetadataProvider) (docInputs, []Listener, ChangePublisher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta := provider.GetMetadata()
	r.providers[meta.Name] = provider
	return r.collectLocked(), append([]Listener(nil), r.listeners...), r.publisher
}

// broadcast compiles the document once and delivers it to local listeners and
// the optional publisher.
func (r *Registry) broadcast(ctx context.Context, inputs docInputs, listeners []Listener, publisher ChangePublisher) {
	if len(listeners) == 0 && publisher == nil {
		return
	}
	doc := r.compile(inputs)
	if len(doc) == 0 {
		return
	}
	event := Snapshot{
		GeneratedAt:   time.Now().UTC(),
		ResourceNames: append([]string(nil), inputs.resourceNames...),
		Document:      doc,
	}
	for _, listener := range listeners {
		listener(ctx, event)
	}
	if publisher != nil {
		publisher.Notify(ctx, uuid.Nil, map[string]any{
			"event":     "schemas.registry.updated",
			"version":   inputs.info.Version,
			"resources": event.ResourceNames,
		})
	}
}

// docInputs holds everything needed to render an OpenAPI document outside the
// registry lock.
type docInputs struct {
	providers        []router.MetadataProvider
	resourceNames    []string
	info             router.OpenAPIInfo
	tags             []string
	relationProvider router.RelationMetadataProvider
	uiOptions        *router.UISchemaOptions
}

func (r *Registry) collectLocked() docInputs {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)

	providers := make([]router.MetadataProvider, 0, len(names))
	for _, name := range names {
		providers = append(providers, r.providers[name])
	}

	var uiOpts *router.UISchemaOptions
	if r.hasUIOptions {
		opts := r.uiOptions
		uiOpts = &opts
	}
	return docInputs{
		providers:        providers,
		resourceNames:    names,
		info:             r.info,
		tags:             append([]string(nil), r.tags...),
		relationProvider: r.relationProvider,
		uiOptions:        uiOpts,
	}
}

func (r *Registry) compile(inputs docInputs) map[string]any {
	if len(inputs.providers) == 0 {
		return nil
	}
	aggregator := router.NewMetadataAggregator()
	if inputs.relationProvider != nil {
		aggregator.WithRelationProvider(inputs.relationProvider)
	}
	if inputs.uiOptions != nil {
		aggregator.WithUISchemaOptions(*inputs.uiOptions)
	}
	if len(inputs.tags) > 0 {
		aggregator.SetTags(inputs.tags)
	}
	if inputs.info.Title != "" {
		aggregator.SetInfo(inputs.info)
	}
	aggregator.AddProviders(inputs.providers...)
	aggregator.Compile()
	return aggregator.GenerateOpenAPI()
}

// frozenProvider pins metadata captured at registration time.
type frozenProvider struct {
	metadata router.ResourceMetadata
}

func (f frozenProvider) GetMetadata() router.ResourceMetadata {
	return f.metadata
}
