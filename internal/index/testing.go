package index

import "github.com/redis/rueidis"

// NewClientForTest creates a Client with the provided rueidis client (test-only).
func NewClientForTest(c rueidis.Client, prefix string) *Client {
	if prefix == "" {
		prefix = "searchd:"
	}
	return &Client{client: c, prefix: prefix}
}
