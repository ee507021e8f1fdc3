package thresholds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

func seed(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestFromTexts(t *testing.T) {
	prof, err := FromTexts([]string{strings.Repeat("a", 100), strings.Repeat("ñ", 300)})
	require.NoError(t, err)
	assert.Equal(t, 200.0, prof.MeanLength)
	assert.Equal(t, 100.0, prof.MinLength)
	assert.Equal(t, 2, prof.Samples)
}

func TestFromTexts_Empty(t *testing.T) {
	_, err := FromTexts(nil)
	assert.ErrorIs(t, err, common.ErrNoSamples)
}

func TestCompute(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"IMSS/a/data_1.txt":         strings.Repeat("x", 1000),
		"IMSS/a/result_1.json":      "{}",
		"IMSS/b/data_2.txt":         strings.Repeat("x", 2000),
		"INFONAVIT/data_1.txt":      strings.Repeat("y", 500),
		"SAT/data_1.txt":            strings.Repeat("z", 800),
		"SAT/nested/data_2.txt":     strings.Repeat("z", 10), // below SAT depth
		"SAT/result_1.json":         "{}",
		"INFONAVIT/result_1.json":   "{}",
		"INFONAVIT/.DS_Store":       "",
		"INFONAVIT/notes/other.txt": "ignored",
	})

	profiles, err := Compute(root, nil)
	require.NoError(t, err)

	imss, ok := profiles.Lookup(constants.IMSS)
	require.True(t, ok)
	assert.Equal(t, 1500.0, imss.MeanLength)
	assert.Equal(t, 1000.0, imss.MinLength)

	sat, ok := profiles.Lookup(constants.SAT)
	require.True(t, ok)
	assert.Equal(t, 800.0, sat.MinLength)
	assert.Equal(t, 1, sat.Samples)

	assert.Len(t, profiles.All(), 3)
}

func TestCompute_EmptyTypeFails(t *testing.T) {
	root := t.TempDir()
	seed(t, root, map[string]string{
		"IMSS/data_1.txt":      "abc",
		"INFONAVIT/data_1.txt": "abc",
		"SAT/result_1.json":    "{}",
	})

	_, err := Compute(root, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoSamples)
	assert.Contains(t, err.Error(), "SAT")
}

func TestProfiles_LookupUnknown(t *testing.T) {
	p := New(map[constants.DocumentType]Profile{constants.IMSS: {MeanLength: 1}})
	_, ok := p.Lookup("CFE")
	assert.False(t, ok)

	var nilProfiles *Profiles
	_, ok = nilProfiles.Lookup(constants.IMSS)
	assert.False(t, ok)
}
