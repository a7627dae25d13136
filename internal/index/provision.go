package index

import (
	"context"
	"fmt"
	"strconv"
)

// LogicalItems and LogicalAuthors are the two indexes this service searches.
const (
	LogicalItems   = "items"
	LogicalAuthors = "authors"
)

// EnsureIndexes creates the items and authors FT indexes if absent.
// Idempotent: an already existing index is not an error.
func (c *Client) EnsureIndexes(ctx context.Context, vectorDim int) error {
	if vectorDim <= 0 {
		return fmt.Errorf("vector dimension must be positive")
	}

	itemsSchema := []string{
		"title", "TEXT",
		"abstract", "TEXT",
		"updated_at", "TAG",
		"app_id", "TAG",
		"abstract_vector", "VECTOR", "HNSW", "6",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(vectorDim),
		"DISTANCE_METRIC", "COSINE",
	}
	if err := c.createIndex(ctx, LogicalItems, itemsSchema); err != nil {
		return fmt.Errorf("ensure items index: %w", err)
	}

	authorsSchema := []string{
		"full_name", "TEXT",
		"app_id", "TAG",
	}
	if err := c.createIndex(ctx, LogicalAuthors, authorsSchema); err != nil {
		return fmt.Errorf("ensure authors index: %w", err)
	}
	return nil
}

func (c *Client) createIndex(ctx context.Context, logical string, schema []string) error {
	args := []string{
		c.indexName(logical),
		"ON", "HASH",
		"PREFIX", "1", c.keyPrefix(logical),
		"SCHEMA",
	}
	args = append(args, schema...)

	cmd := c.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := c.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return err
	}
	return nil
}
