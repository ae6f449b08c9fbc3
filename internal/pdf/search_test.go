package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]int) {
	t.Helper()
	for name, size := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	}
}

func names(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestService_SearchDocuments(t *testing.T) {
	work := t.TempDir()
	s, err := NewService(4096, work, "")
	require.NoError(t, err)

	writeFiles(t, work, map[string]int{
		"BA_VARIANCE_A12B_251225_TTD_AS.pdf":   1024,
		"Berita_Acara_C3D4.pdf":                1024,
		"scan/ba toko barat.PDF":               512,
		"photo.jpg":                            100,
		"empty.pdf":                            0,
		"large.pdf":                            8192,
		".tmp/BA_VARIANCE_X_251225_TTD_AM.pdf": 100,
	})

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"all", "", []string{"BA_VARIANCE_A12B_251225_TTD_AS.pdf", "Berita_Acara_C3D4.pdf", "ba toko barat.PDF"}},
		{"store code", "a12b", []string{"BA_VARIANCE_A12B_251225_TTD_AS.pdf"}},
		{"words", "toko barat", []string{"ba toko barat.PDF"}},
		{"word fragments", "berita c3", []string{"Berita_Acara_C3D4.pdf"}},
		{"no match", "z9", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.SearchDocuments(SearchRequest{Query: tt.query})
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, names(res.Files))
			assert.Equal(t, len(tt.want), res.TotalCount)
			assert.False(t, res.Truncated)
		})
	}
}

func TestService_SearchDocuments_Details(t *testing.T) {
	work := t.TempDir()
	s, err := NewService(4096, work, "")
	require.NoError(t, err)
	writeFiles(t, work, map[string]int{
		"BA_VARIANCE_A12B_251225_TTD_AS.pdf": 10,
		"scan/Berita_Acara_C3D4.pdf":         10,
	})

	res, err := s.SearchDocuments(SearchRequest{})
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	byName := map[string]FileInfo{}
	for _, f := range res.Files {
		byName[f.Name] = f
	}
	signed := byName["BA_VARIANCE_A12B_251225_TTD_AS.pdf"]
	assert.True(t, signed.Signed)
	assert.Equal(t, "A12B", signed.StoreCode)
	assert.Equal(t, "BA_VARIANCE_A12B_251225_TTD_AS.pdf", signed.Path)

	report := byName["Berita_Acara_C3D4.pdf"]
	assert.False(t, report.Signed)
	assert.Equal(t, "C3D4", report.StoreCode)
	assert.Equal(t, filepath.Join("scan", "Berita_Acara_C3D4.pdf"), report.Path)
	assert.Equal(t, s.WorkDir(), res.Directory)
}

func TestService_SearchDocuments_Limit(t *testing.T) {
	work := t.TempDir()
	s, err := NewService(4096, work, "")
	require.NoError(t, err)
	writeFiles(t, work, map[string]int{"a.pdf": 10, "b.pdf": 10, "c.pdf": 10})

	res, err := s.SearchDocuments(SearchRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.True(t, res.Truncated)
}

func TestService_SearchDocuments_MissingDir(t *testing.T) {
	s, err := NewService(4096, filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)
	_, err = s.SearchDocuments(SearchRequest{})
	assert.Error(t, err)
}

func TestMatchesQuery(t *testing.T) {
	assert.True(t, matchesQuery("Berita_Acara_A12B.pdf", "A12B", "a12b"))
	assert.True(t, matchesQuery("ba toko barat.pdf", "", "barat"))
	assert.False(t, matchesQuery("ba toko barat.pdf", "", "timur"))
	assert.Equal(t, []string{"ba", "variance", "a12b"}, splitIntoWords("BA_VARIANCE-A12B"))
}
