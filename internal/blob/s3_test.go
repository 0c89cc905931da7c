package blob

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeS3 is a minimal path-style S3 endpoint implemented as a RoundTripper.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body        []byte
	contentType string
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if strings.Contains(req.Header.Get("Content-Encoding"), "aws-chunked") {
			body = decodeAWSChunked(body)
		}
		f.objects[key] = fakeObject{body: body, contentType: req.Header.Get("Content-Type")}
		return respond(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		obj, ok := f.objects[key]
		if !ok {
			return respond(http.StatusNotFound,
				[]byte(`<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`),
				http.Header{"Content-Type": {"application/xml"}}), nil
		}
		return respond(http.StatusOK, obj.body, http.Header{
			"Content-Type":   {obj.contentType},
			"Content-Length": {strconv.Itoa(len(obj.body))},
		}), nil
	case http.MethodDelete:
		delete(f.objects, key)
		return respond(http.StatusNoContent, nil, http.Header{}), nil
	}
	return respond(http.StatusNotImplemented, nil, http.Header{}), nil
}

func respond(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{
		StatusCode:    status,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}
}

// decodeAWSChunked strips aws-chunked framing: <hex>[;ext]\r\n<data>\r\n ... 0\r\n<trailers>.
func decodeAWSChunked(b []byte) []byte {
	r := bufio.NewReader(bytes.NewReader(b))
	var out bytes.Buffer
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return b
		}
		sizeHex := strings.TrimSpace(strings.SplitN(line, ";", 2)[0])
		size, err := strconv.ParseInt(sizeHex, 16, 64)
		if err != nil {
			return b
		}
		if size == 0 {
			return out.Bytes()
		}
		if _, err := io.CopyN(&out, r, size); err != nil {
			return b
		}
		r.ReadString('\n')
	}
}

func newFakeS3Store(t *testing.T) (*S3, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]fakeObject)}
	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "images",
		Region:          "us-east-1",
		Endpoint:        "https://s3.test.local",
		PathStyle:       true,
		AccessKeyID:     "AKIATEST",
		SecretAccessKey: "secret",
		HTTPClient:      &http.Client{Transport: fake},
	})
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}
	return s, fake
}

func TestS3Store(t *testing.T) {
	s, fake := newFakeS3Store(t)
	exerciseStore(t, s)

	if n := len(fake.objects); n != 0 {
		t.Errorf("expected empty bucket after delete, got %d objects", n)
	}
	if s.Driver() != DriverS3 {
		t.Errorf("unexpected driver %q", s.Driver())
	}
}

func TestS3RequiresBucket(t *testing.T) {
	if _, err := NewS3(context.Background(), S3Config{}); err == nil {
		t.Error("expected error without bucket")
	}
}
