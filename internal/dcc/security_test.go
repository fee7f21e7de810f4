package dcc

import (
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUnroutableAddr(t *testing.T) {
	unroutable := []string{
		"127.0.0.1",
		"10.0.0.5",
		"172.16.3.4",
		"192.168.1.1",
		"169.254.0.1",
		"0.0.0.0",
		"255.255.255.255",
	}
	for _, addr := range unroutable {
		assert.True(t, IsUnroutableAddr(netip.MustParseAddr(addr)), addr)
	}

	routable := []string{"8.8.8.8", "93.184.216.34", "172.32.0.1"}
	for _, addr := range routable {
		assert.False(t, IsUnroutableAddr(netip.MustParseAddr(addr)), addr)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		err  bool
	}{
		{name: "plain", in: "file.zip", want: "file.zip"},
		{name: "unix traversal", in: "../../etc/passwd", want: "passwd"},
		{name: "windows traversal", in: `..\..\windows\system32\evil.dll`, want: "evil.dll"},
		{name: "absolute path", in: "/etc/shadow", want: "shadow"},
		{name: "hidden file", in: ".bashrc", want: "bashrc"},
		{name: "many leading dots", in: "...config", want: "config"},
		{name: "control chars stripped", in: "fi\x00le\x1b.txt", want: "file.txt"},
		{name: "colon stripped", in: "C:evil.exe", want: "Cevil.exe"},
		{name: "spaces kept", in: "my document.pdf", want: "my document.pdf"},
		{name: "unicode kept", in: "résumé.pdf", want: "résumé.pdf"},
		{name: "only dots", in: "...", err: true},
		{name: "only separators", in: "///", err: true},
		{name: "empty", in: "", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFilename(tt.in)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilenameTruncates(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"
	got, err := SanitizeFilename(long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 255)
}

func TestSanitizeFilenameTruncationKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("é", 200) // 400 bytes
	got, err := SanitizeFilename(long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasSuffix(got, "é"))
}

// downloadDir returns a scratch directory in canonical form, matching
// what SafeDownloadPath resolves to.
func downloadDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func TestSafeDownloadPath(t *testing.T) {
	dir := downloadDir(t)

	path, err := SafeDownloadPath(dir, "file.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file.zip"), path)
}

func TestSafeDownloadPathResolvesSymlinkedDir(t *testing.T) {
	real := downloadDir(t)
	link := filepath.Join(t.TempDir(), "downloads")
	require.NoError(t, os.Symlink(real, link))

	path, err := SafeDownloadPath(link, "file.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(real, "file.zip"), path)
}

func TestSafeDownloadPathProbesSuffixes(t *testing.T) {
	dir := downloadDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.zip"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file_1.zip"), nil, 0o644))

	path, err := SafeDownloadPath(dir, "file.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file_2.zip"), path)
}

func TestSafeDownloadPathRejectsEscape(t *testing.T) {
	dir := t.TempDir()

	_, err := SafeDownloadPath(dir, filepath.Join("..", "evil.zip"))
	require.Error(t, err)
}
