// CLAUDE:SUMMARY Input safety for recording locations: data-root confinement, SSRF checks on remote URLs, identifier validation and bounded reads.
// Package horosafe guards the inputs bulkvis receives from clients.
//
// Local paths are confined to a data root. Remote URLs may not target
// private networks. Session identifiers use a restricted alphabet, request
// bodies are read with a cap, and signing secrets have a minimum length.
package horosafe

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/netip"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxBody is the default cap for request and response bodies (1 MiB).
const MaxBody int64 = 1 << 20

// MinSecretLen is the minimum length of HMAC secrets (256 bits).
const MinSecretLen = 32

var (
	// ErrPathTraversal is returned when a path escapes its root.
	ErrPathTraversal = errors.New("horosafe: path escapes data root")

	// ErrSSRF is returned when a URL targets a private or loopback address.
	ErrSSRF = errors.New("horosafe: URL targets a private or loopback address")

	// ErrUnsafeScheme is returned when a URL is neither http nor https.
	ErrUnsafeScheme = errors.New("horosafe: only http and https schemes are allowed")

	// ErrTooLarge is returned by LimitedReadAll when the cap is exceeded.
	ErrTooLarge = errors.New("horosafe: body too large")

	// ErrSecretTooShort is returned when a secret is under MinSecretLen bytes.
	ErrSecretTooShort = fmt.Errorf("horosafe: secret must be at least %d bytes", MinSecretLen)
)

// ValidateSecret checks that secret is at least MinSecretLen bytes.
func ValidateSecret(secret []byte) error {
	if len(secret) < MinSecretLen {
		return ErrSecretTooShort
	}
	return nil
}

// SafePath joins a relative userInput under base. Any ".." segment is
// rejected before cleaning.
func SafePath(base, userInput string) (string, error) {
	for _, seg := range strings.FieldsFunc(userInput, isSep) {
		if seg == ".." {
			return "", ErrPathTraversal
		}
	}
	root := filepath.Clean(base)
	joined := filepath.Join(root, filepath.Clean("/"+userInput))
	if joined != root && !strings.HasPrefix(joined, root+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return joined, nil
}

// Confine is SafePath that also accepts absolute paths already under root.
func Confine(root, p string) (string, error) {
	if !filepath.IsAbs(p) {
		return SafePath(root, p)
	}
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return SafePath(root, rel)
}

// ValidateURL checks that rawURL is http(s) with a host that does not
// resolve to a private, loopback or link-local address. Unresolvable hosts
// pass; the dial fails later.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("horosafe: invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return errors.New("horosafe: URL has no host")
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivate(addr) {
			return ErrSSRF
		}
		return nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil {
		return nil
	}
	for _, a := range addrs {
		if addr, err := netip.ParseAddr(a); err == nil && isPrivate(addr) {
			return ErrSSRF
		}
	}
	return nil
}

// ValidateIdentifier accepts 1 to 128 characters of [A-Za-z0-9_-].
func ValidateIdentifier(s string) error {
	if s == "" {
		return errors.New("horosafe: identifier must not be empty")
	}
	if len(s) > 128 {
		return errors.New("horosafe: identifier too long (max 128)")
	}
	for _, r := range s {
		if !isIdentChar(r) {
			return fmt.Errorf("horosafe: invalid character %q in identifier", r)
		}
	}
	return nil
}

// LimitedReadAll reads at most max bytes from r, failing with ErrTooLarge
// beyond that.
func LimitedReadAll(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, max)
	}
	return data, nil
}

func isSep(r rune) bool { return r == '/' || r == filepath.Separator }

func isIdentChar(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '_' || r == '-'
}

func isPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}
