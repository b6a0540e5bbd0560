package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestDocumentsCmd_List(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.docs = []domain.DocumentSummary{
		{DocID: "doc_a", Filename: "a.txt", ChunkCount: 3},
		{DocID: "doc_b", Filename: "b.pdf", ChunkCount: 12},
	}

	out, err := execute(t, "documents")

	require.NoError(t, err)
	assert.Contains(t, out, "doc_a")
	assert.Contains(t, out, "File: b.pdf")
	assert.Contains(t, out, "Chunks: 12")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestDocumentsCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "documents")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents indexed.")
}

func TestDocumentsCmd_JSON(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.docs = []domain.DocumentSummary{{DocID: "doc_a", Filename: "a.txt", ChunkCount: 3}}

	out, err := execute(t, "documents", "--json")

	require.NoError(t, err)
	assert.Contains(t, out, `"doc_id": "doc_a"`)
	assert.Contains(t, out, `"chunk_count": 3`)
}

func TestDeleteCmd(t *testing.T) {
	tests := []struct {
		name    string
		missing bool
		wantErr string
		wantOut string
	}{
		{name: "deleted", wantOut: "Deleted document: doc_a"},
		{name: "not found", missing: true, wantErr: "document not found: doc_a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()
			ts.ingest.missing = tt.missing

			out, err := execute(t, "delete", "doc_a")

			assert.Equal(t, []string{"doc_a"}, ts.ingest.deleted)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestDeleteCmd_RequiresID(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "delete")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestStatsCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.stats = &domain.SystemStats{TotalChunks: 42, UniqueDocuments: 3, DBSizeBytes: 3 << 20}

	out, err := execute(t, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Chunks:    42")
	assert.Contains(t, out, "Documents: 3")
	assert.Contains(t, out, "Size:      3.0 MiB")
	assert.Equal(t, 1, ts.ingest.refreshes, "stats records a metrics snapshot")
}

func TestStatsCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.ingest.err = domain.ErrIndexUnavailable

	_, err := execute(t, "stats")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatBytes(tt.in))
	}
}
