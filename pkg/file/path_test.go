package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "ep1.bilingual.srt"), ReplaceExt("out/ep1.srt", "bilingual.srt"))
	assert.Equal(t, filepath.Join("out", "ep1.mp3"), ReplaceExt("out/ep1.mp4", ".mp3"))
	assert.Equal(t, filepath.Join("out", "noext.srt"), ReplaceExt("out/noext", "srt"))
	assert.Equal(t, "", ReplaceExt("", ".srt"))
}

func TestBaseNameAndHasExt(t *testing.T) {
	assert.Equal(t, "show.s01e01", BaseName("/tmp/show.s01e01.srt"))
	assert.True(t, HasExt("clip.MP4", "mp4", "mp3"))
	assert.True(t, HasExt("a.srt", ".srt"))
	assert.False(t, HasExt("a.srt.txt", "srt"))
	assert.False(t, HasExt("noext", "srt"))
}

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"episode 01.srt":      "episode_01.srt",
		"../../etc/passwd":    "passwd",
		`C:\videos\clip.mp4`:  "clip.mp4",
		".hidden.srt":         "hidden.srt",
		"名前 test.srt":         "test.srt",
		"weird$chars!(1).mp3": "weirdchars1.mp3",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestFindOlderThan(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.srt")
	newPath := filepath.Join(dir, "new.srt")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newPath, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(oldPath, past, past))

	stale, err := FindOlderThan(dir, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{oldPath}, stale)
}
