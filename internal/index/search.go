package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/openlibra/searchd/internal/domain"
)

// semanticScorer is the server-side rerank profile requested for semantic
// queries. Deployments without it reject the SCORER argument, which the
// caller observes as domain.ErrSemanticNotSupported and downgrades.
const semanticScorer = "SEMANTIC"

// rerankField is the per-hit rerank score field a semantic-capable backend
// returns alongside the relevance score.
const rerankField = "__semantic_score"

// SearchText runs a keyword or semantic text search via FT.SEARCH.
// The wildcard query "*" lists documents without text scoring.
func (c *Client) SearchText(ctx context.Context, logical string, q domain.TextQuery) ([]domain.Hit, error) {
	if q.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if q.Top <= 0 {
		return nil, fmt.Errorf("top must be positive")
	}

	queryStr := buildTextQuery(q.Query, q.AppID)

	args := []string{c.indexName(logical), queryStr}
	if len(q.Fields) > 0 {
		ret := q.Fields
		if q.Semantic {
			ret = append(append([]string{}, q.Fields...), rerankField)
		}
		args = append(args, "RETURN", strconv.Itoa(len(ret)))
		args = append(args, ret...)
	}
	if q.Semantic {
		args = append(args, "SCORER", semanticScorer)
	}
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.Top),
		"DIALECT", "2",
	)

	cmd := c.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := c.do(ctx, cmd).ToArray()
	if err != nil {
		if q.Semantic && isCapabilityErr(err) {
			return nil, fmt.Errorf("scorer %q rejected: %w", semanticScorer, domain.ErrSemanticNotSupported)
		}
		return nil, fmt.Errorf("search text %s: %w", logical, err)
	}

	return parseScoredResult(raw, c.keyPrefix(logical))
}

// SearchVector runs a KNN vector similarity search via FT.SEARCH. Hits carry
// only the similarity score; payloads come from a later batched fetch.
func (c *Client) SearchVector(ctx context.Context, logical string, q domain.VectorQuery) ([]domain.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.Top <= 0 {
		return nil, fmt.Errorf("top must be positive")
	}
	field := q.Field
	if field == "" {
		field = "abstract_vector"
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB]", q.Top, field)
	var queryStr string
	if filter := buildAppFilter(q.AppID); filter != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filter, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	scoreField := fmt.Sprintf("__%s_score", field)
	args := []string{
		c.indexName(logical), queryStr,
		"RETURN", "1", scoreField,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := c.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := c.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("search vector %s: %w", logical, err)
	}

	return parseKNNResult(raw, c.keyPrefix(logical), scoreField)
}

// FetchByIDs retrieves full document payloads for an id set in one pipelined
// round trip, avoiding an N+1 pattern against the backend. Documents whose
// app_id does not match the filter are dropped.
func (c *Client) FetchByIDs(ctx context.Context, logical string, ids []string, appID string) (map[string]map[string]string, error) {
	if len(ids) == 0 {
		return map[string]map[string]string{}, nil
	}

	prefix := c.keyPrefix(logical)
	cmds := make(rueidis.Commands, 0, len(ids))
	for _, id := range ids {
		cmds = append(cmds, c.b().Hgetall().Key(prefix+id).Build())
	}

	docs := make(map[string]map[string]string, len(ids))
	for i, resp := range c.client.DoMulti(ctx, cmds...) {
		fields, err := resp.AsStrMap()
		if err != nil || len(fields) == 0 {
			continue
		}
		if appID != "" && fields["app_id"] != appID {
			continue
		}
		docs[ids[i]] = fields
	}
	return docs, nil
}

// --- Result parsing ---

// parseScoredResult parses a WITHSCORES FT.SEARCH reply.
// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
func parseScoredResult(raw []rueidis.RedisMessage, prefix string) ([]domain.Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, total)
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}
		fieldMsgs, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		fields := parseFieldPairs(fieldMsgs)
		hit := domain.Hit{
			ID:     strings.TrimPrefix(key, prefix),
			Score:  score,
			Fields: fields,
		}
		if rs, ok := fields[rerankField]; ok {
			if r, err := strconv.ParseFloat(rs, 64); err == nil {
				hit.Rerank = r
			}
			delete(fields, rerankField)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// parseKNNResult parses a KNN FT.SEARCH reply.
// 2-stride: [total, key1, fields1, key2, fields2, ...]
func parseKNNResult(raw []rueidis.RedisMessage, prefix, scoreField string) ([]domain.Hit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	hits := make([]domain.Hit, 0, total)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldMsgs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		fields := parseFieldPairs(fieldMsgs)
		hit := domain.Hit{ID: strings.TrimPrefix(key, prefix)}
		if ds, ok := fields[scoreField]; ok {
			if d, err := strconv.ParseFloat(ds, 64); err == nil {
				hit.Score = math.Max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildTextQuery combines the escaped query terms with the tenant tag
// pre-filter. Terms search all TEXT fields of the index.
func buildTextQuery(query, appID string) string {
	var textPart string
	if query == "*" {
		textPart = "*"
	} else {
		textPart = fmt.Sprintf("(%s)", escapeQuery(query))
	}
	if filter := buildAppFilter(appID); filter != "" {
		if textPart == "*" {
			return filter
		}
		return fmt.Sprintf("%s %s", filter, textPart)
	}
	return textPart
}

func buildAppFilter(appID string) string {
	if appID == "" {
		return ""
	}
	return fmt.Sprintf("@app_id:{%s}", tagEscaper.Replace(appID))
}

// isCapabilityErr detects the backend telling us a query feature is not
// available on this deployment, as opposed to a transient failure.
func isCapabilityErr(err error) bool {
	return isRedisErr(err, "no such scorer") ||
		isRedisErr(err, "unknown argument") ||
		isRedisErr(err, "unsupported")
}

var tagEscaper = strings.NewReplacer(
	",", "\\,", ".", "\\.", "<", "\\<", ">", "\\>",
	"{", "\\{", "}", "\\}", "\"", "\\\"", "'", "\\'",
	":", "\\:", ";", "\\;", "!", "\\!", "@", "\\@",
	"#", "\\#", "$", "\\$", "%", "\\%", "^", "\\^",
	"&", "\\&", "*", "\\*", "(", "\\(", ")", "\\)",
	"-", "\\-", "+", "\\+", "=", "\\=", "~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`, `'`, `\'`, `"`, `\"`, `@`, `\@`,
	`{`, `\{`, `}`, `\}`, `(`, `\(`, `)`, `\)`,
	`|`, `\|`, `-`, `\-`, `~`, `\~`, `*`, `\*`,
	`[`, `\[`, `]`, `\]`, `!`, `\!`, `%`, `\%`,
	`^`, `\^`, `$`, `\$`, `<`, `\<`, `>`, `\>`,
	`=`, `\=`, `;`, `\;`, `+`, `\+`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
