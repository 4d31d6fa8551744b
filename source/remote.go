// CLAUDE:SUMMARY Random-access readers for remote pod5 objects: minio-go ranged GETs for s3://, HTTP Range requests for https://.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hazyhaar/bulkvis/horosafe"
)

// ReaderAt is a sized random-access object the caller must close.
type ReaderAt interface {
	io.ReaderAt
	io.Closer
	Size() int64
}

// openRemote returns a ReaderAt for an s3 or https location.
func openRemote(ctx context.Context, loc Location, cfg Config) (ReaderAt, error) {
	switch loc.Scheme {
	case "s3":
		return openS3(ctx, loc, cfg.S3)
	case "https":
		return openHTTP(ctx, loc.Raw, cfg.HTTPClient, cfg.AllowPrivateHosts)
	default:
		return nil, &UnsupportedFormatError{Location: loc.Raw, Reason: "scheme " + loc.Scheme}
	}
}

// s3Object adapts a minio object, which already serves ReadAt with ranged GETs.
type s3Object struct {
	*minio.Object
	size int64
}

func (o *s3Object) Size() int64 { return o.size }

func openS3(ctx context.Context, loc Location, cfg S3Config) (ReaderAt, error) {
	endpoint, secure := "s3.amazonaws.com", true
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint
		if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
			endpoint, secure = rest, false
		}
		endpoint = strings.TrimSuffix(strings.TrimPrefix(endpoint, "https://"), "/")
	}

	creds := credentials.NewEnvAWS()
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}

	obj, err := client.GetObject(ctx, loc.Host, loc.Path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s/%s: %w", loc.Host, loc.Path, err)
	}
	st, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, fmt.Errorf("s3 stat %s/%s: %w", loc.Host, loc.Path, err)
	}
	return &s3Object{Object: obj, size: st.Size}, nil
}

// httpObject reads an https resource with one Range request per ReadAt.
type httpObject struct {
	ctx    context.Context // bounds every ranged request of this handle
	client *http.Client
	url    string
	size   int64
}

func openHTTP(ctx context.Context, url string, client *http.Client, allowPrivate bool) (ReaderAt, error) {
	if !allowPrivate {
		if err := horosafe.ValidateURL(url); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("head %s: status %d", url, resp.StatusCode)
	}
	if resp.ContentLength < 0 {
		return nil, fmt.Errorf("head %s: unknown content length", url)
	}
	if !strings.Contains(resp.Header.Get("Accept-Ranges"), "bytes") {
		return nil, fmt.Errorf("head %s: server does not accept byte ranges", url)
	}
	return &httpObject{ctx: ctx, client: client, url: url, size: resp.ContentLength}, nil
}

func (h *httpObject) Size() int64 { return h.size }

func (h *httpObject) Close() error { return nil }

func (h *httpObject) ReadAt(p []byte, off int64) (int, error) {
	if off >= h.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	end := off + int64(len(p)) - 1
	if end >= h.size {
		end = h.size - 1
	}

	req, err := http.NewRequestWithContext(h.ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	resp, err := h.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		return 0, fmt.Errorf("range %d-%d of %s: status %d", off, end, h.url, resp.StatusCode)
	}

	n, err := io.ReadFull(resp.Body, p[:end-off+1])
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}
