package dcc

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
)

// IsUnroutableAddr reports whether an offered sender address is one we
// refuse to dial when reject_private_ips is set: loopback, RFC 1918
// private ranges, link-local, broadcast, or the unspecified address.
func IsUnroutableAddr(ip netip.Addr) bool {
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	return ip == netip.AddrFrom4([4]byte{255, 255, 255, 255})
}

const maxFilenameBytes = 255

// SanitizeFilename reduces an attacker-controlled filename to a single
// safe path component. Path separators of both flavors are stripped to
// their final segment, control characters and separator bytes are
// removed, leading dots are dropped, and the result is capped at 255
// bytes. An empty result is an error.
func SanitizeFilename(name string) (string, error) {
	// Keep only the last path component, accepting either separator.
	if idx := strings.LastIndexAny(name, "/\\"); idx >= 0 {
		name = name[idx+1:]
	}

	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			continue
		}
		switch r {
		case '/', '\\', ':':
			continue
		}
		b.WriteRune(r)
	}
	name = strings.TrimLeft(b.String(), ".")

	if name == "" {
		return "", errors.New("filename empty after sanitization")
	}
	if len(name) > maxFilenameBytes {
		name = truncateUTF8(name, maxFilenameBytes)
	}
	return name, nil
}

// truncateUTF8 cuts s to at most max bytes without splitting a rune.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && s[cut]&0xc0 == 0x80 {
		cut--
	}
	return s[:cut]
}

const maxSuffixProbes = 1000

// SafeDownloadPath resolves filename inside dir, refusing any result
// that escapes the directory and probing numeric suffixes (name_1.ext,
// name_2.ext, ...) until an unused name is found.
func SafeDownloadPath(dir, filename string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving download dir: %w", err)
	}
	// Canonical form, so the escape check below cannot be dodged by a
	// symlinked download directory.
	if resolved, err := filepath.EvalSymlinks(absDir); err == nil {
		absDir = resolved
	}

	candidate := filepath.Join(absDir, filename)
	if !strings.HasPrefix(candidate, absDir+string(filepath.Separator)) {
		return "", fmt.Errorf("filename %q escapes download directory", filename)
	}

	if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
		return candidate, nil
	}

	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for i := 1; i <= maxSuffixProbes; i++ {
		probe := filepath.Join(absDir, fmt.Sprintf("%s_%d%s", stem, i, ext))
		if _, err := os.Stat(probe); errors.Is(err, os.ErrNotExist) {
			return probe, nil
		}
	}
	return "", fmt.Errorf("no free filename for %q after %d attempts", filename, maxSuffixProbes)
}
