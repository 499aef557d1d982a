package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSON_EncodedRegistryPasses(t *testing.T) {
	data, err := EncodeRegistry(sampleRegistry(t))
	require.NoError(t, err)
	assert.NoError(t, ValidateJSON(data))
}

func TestValidateJSON_Violations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		path string
	}{
		{
			name: "bad status",
			doc:  `{"version": 1, "entries": [{"entryId": "a", "sources": {}, "items": [{"id": "1", "title": "t", "status": "blocked", "updated": "x"}]}]}`,
			path: "entries.0.items.0.status",
		},
		{
			name: "unknown source type",
			doc:  `{"version": 1, "entries": [{"entryId": "a", "sources": {"jira": {"artifactId": null, "contentHash": null, "lastSyncedAt": null}}, "items": []}]}`,
			path: "entries.0.sources.jira",
		},
		{
			name: "zero version",
			doc:  `{"version": 0, "entries": []}`,
			path: "version",
		},
		{
			name: "missing entry id",
			doc:  `{"version": 1, "entries": [{"sources": {}, "items": []}]}`,
			path: "entries.0.entryId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON([]byte(tt.doc))
			require.Error(t, err)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.NotEmpty(t, ve.Issues)
			paths := make([]string, len(ve.Issues))
			for i, is := range ve.Issues {
				paths[i] = is.Path
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}

func TestValidateJSON_Malformed(t *testing.T) {
	err := ValidateJSON([]byte(`{"version": `))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestFileStore_ValidationOnLoad(t *testing.T) {
	path := t.TempDir() + "/registry.json"
	s := NewFileStore(path, WithValidation(true))
	require.NoError(t, s.Save(context.Background(), sampleRegistry(t)))

	_, err := s.Load(context.Background())
	assert.NoError(t, err)
}
