package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSourceType(t *testing.T) {
	tests := []struct {
		tag  string
		want SourceType
	}{
		{"text", SourceTypeText},
		{"file", SourceTypeFile},
		{"url", SourceTypeURL},
		{"site", SourceTypeURL},
		{"link", SourceTypeURL},
		{" URL ", SourceTypeURL},
		{"website", SourceTypeUnknown},
		{"textual", SourceTypeUnknown},
		{"", SourceTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSourceType(tt.tag))
		})
	}
}

func TestSourceType_StringAndLabel(t *testing.T) {
	assert.Equal(t, "text", SourceTypeText.String())
	assert.Equal(t, "file", SourceTypeFile.String())
	assert.Equal(t, "url", SourceTypeURL.String())
	assert.Equal(t, "unknown", SourceTypeUnknown.String())

	assert.Equal(t, "Link", SourceTypeURL.Label())
	assert.Equal(t, "Source", SourceTypeUnknown.Label())
}

func TestSource_UnmarshalNormalisesSiteTag(t *testing.T) {
	var src Source
	err := json.Unmarshal([]byte(`{"source_id":"s1","type":"site","uri":"https://example.com","progress":55}`), &src)

	require.NoError(t, err)
	assert.Equal(t, "s1", src.ID)
	assert.Equal(t, SourceTypeURL, src.Type)
	assert.Equal(t, "https://example.com", src.URI)
	assert.InDelta(t, 0.55, src.ProgressFraction(), 0.0001)
}

func TestSource_UnmarshalNonStringType(t *testing.T) {
	var src Source
	err := json.Unmarshal([]byte(`{"source_id":"s1","type":7}`), &src)

	require.NoError(t, err)
	assert.Equal(t, SourceTypeUnknown, src.Type)
}

func TestSource_MarshalCanonicalTag(t *testing.T) {
	data, err := json.Marshal(Source{ID: "s1", Type: SourceTypeURL})

	require.NoError(t, err)
	assert.JSONEq(t, `{"source_id":"s1","type":"url"}`, string(data))
}

func TestSource_DisplayTitle(t *testing.T) {
	assert.Equal(t, "Title", (&Source{ID: "id", Title: "Title", URI: "u"}).DisplayTitle())
	assert.Equal(t, "https://x", (&Source{ID: "id", URI: "https://x"}).DisplayTitle())
	assert.Equal(t, "a.pdf", (&Source{ID: "id", Filename: "a.pdf"}).DisplayTitle())
	assert.Equal(t, "id", (&Source{ID: "id", Title: "  "}).DisplayTitle())
}

func TestSource_ProgressFractionClamped(t *testing.T) {
	assert.Equal(t, 0.0, (&Source{Progress: -5}).ProgressFraction())
	assert.Equal(t, 1.0, (&Source{Progress: 140}).ProgressFraction())
}

func TestFindSource(t *testing.T) {
	snapshot := []Source{{ID: "a"}, {ID: "b", Title: "B"}}

	got, ok := FindSource(snapshot, "b")
	require.True(t, ok)
	assert.Equal(t, "B", got.Title)

	got.Title = "changed"
	assert.Equal(t, "B", snapshot[1].Title, "FindSource must return a copy")

	_, ok = FindSource(snapshot, "missing")
	assert.False(t, ok)
}
