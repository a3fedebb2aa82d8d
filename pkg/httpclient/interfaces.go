package httpclient

import "context"

// Response is a minimal HTTP response contract. FinalURL reports the address
// the request ended at after any redirects were followed.
type Response interface {
	Body() []byte
	StatusCode() int
	FinalURL() string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
