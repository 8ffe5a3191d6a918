package schema

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegistryDocumentMergesRegisteredResources(t *testing.T) {
	reg := NewRegistry(WithInfo(router.OpenAPIInfo{
		Title:       "Story Schemas",
		Version:     "v1",
		Description: "Aggregated controller snapshot",
	}))

	reg.Register(newProviderStub("activity", "activities"))
	reg.Register(newProviderStub("story", "stories"))

	doc := reg.Document()
	require.NotNil(t, doc)

	info, ok := doc["info"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Story Schemas", info["title"])

	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/stories")
	assert.Contains(t, paths, "/activities")
}

func TestRegistryHandlerNoContentWithoutProviders(t *testing.T) {
	reg := NewRegistry()
	ctx := router.NewMockContext()
	ctx.On("NoContent", http.StatusNoContent).Return(nil)

	require.NoError(t, reg.Handler()(ctx))
	ctx.AssertCalled(t, "NoContent", http.StatusNoContent)
}

func TestRegistryHandlerServesDocument(t *testing.T) {
	reg := NewRegistry()
	reg.Register(newProviderStub("journal", "journals"))

	ctx := router.NewMockContext()
	ctx.On("JSON", http.StatusOK, mock.Anything).Return(nil)

	require.NoError(t, reg.Handler()(ctx))
	ctx.AssertCalled(t, "JSON", http.StatusOK, mock.Anything)
}

func TestRegistryNotifiesSubscribersOnRegister(t *testing.T) {
	reg := NewRegistry()
	var got Snapshot
	notified := false
	reg.Subscribe(func(_ context.Context, snap Snapshot) {
		notified = true
		got = snap
	})

	reg.Register(newProviderStub("activity", "activities"))

	require.True(t, notified, "subscriber never ran")
	assert.Equal(t, []string{"activity"}, got.ResourceNames)
	assert.NotNil(t, got.Document)
}

type providerStub struct {
	metadata router.ResourceMetadata
}

func (s providerStub) GetMetadata() router.ResourceMetadata {
	return s.metadata
}

func newProviderStub(name, plural string) router.MetadataProvider {
	return providerStub{
		metadata: router.ResourceMetadata{
			Name:       name,
			PluralName: plural,
			Schema: router.SchemaMetadata{
				Name: name,
				Properties: map[string]router.PropertyInfo{
					"id": {
						Type:         "string",
						OriginalName: "id",
					},
				},
			},
			Routes: []router.RouteDefinition{
				{
					Method: router.GET,
					Path:   "/" + plural,
					Name:   name + ":list",
				},
			},
		},
	}
}
