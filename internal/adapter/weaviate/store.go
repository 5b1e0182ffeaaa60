// Package weaviate stores chunk vectors in a Weaviate class and serves
// nearest-neighbor queries against it.
package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"sitekb/internal/pipeline"
	"sitekb/internal/retrieval"
	"sitekb/internal/vector"
)

// chunkNamespace seeds deterministic object IDs so that re-ingesting the
// same (url, chunkIndex) overwrites the existing object instead of
// duplicating it.
var chunkNamespace = uuid.MustParse("6f0a1c5e-2b7d-4e92-9c43-8f1d0b7a5e21")

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// ChunkID derives the stable object ID for a (url, chunkIndex) pair.
func ChunkID(url string, chunkIndex int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(url+"#"+strconv.Itoa(chunkIndex))).String()
}

// UpsertChunks writes rows in a single batch. Deterministic IDs make the
// batch a PUT: repeating it converges on one object per (url, chunkIndex).
func (s *Store) UpsertChunks(ctx context.Context, rows []pipeline.ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}

	batcher := s.client.Batch().ObjectsBatcher()
	for _, row := range rows {
		obj := &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(ChunkID(row.URL, row.ChunkIndex)),
			Properties: map[string]interface{}{
				"content":    row.Content,
				"url":        row.URL,
				"chunkIndex": row.ChunkIndex,
				"tokenCount": row.TokenCount,
			},
			Vector: row.Embedding,
		}
		batcher = batcher.WithObjects(obj)
	}

	res, err := batcher.Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch upsert: %w", err)
	}
	for _, obj := range res {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate batch upsert: object %s: %s", obj.ID, obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByURL removes every chunk stored for url. Run before upserting a
// recrawl so a page that shrank leaves no stale tail chunks behind.
func (s *Store) DeleteByURL(ctx context.Context, url string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"url"}).
			WithOperator(filters.Equal).
			WithValueString(url)).
		Do(ctx)
	return err
}

// Clear drops every object in the class.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"url"}).
			WithOperator(filters.Like).
			WithValueText("*")).
		Do(ctx)
	return err
}

func (s *Store) Count(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if classes, ok := data[vector.ClassName].([]interface{}); ok && len(classes) > 0 {
			if agg, ok := classes[0].(map[string]interface{}); ok {
				if meta, ok := agg["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, fmt.Errorf("weaviate aggregate: unexpected response shape")
}

// Query runs a nearVector search and maps Weaviate's cosine distance to a
// similarity score of 1 - distance, best match first.
func (s *Store) Query(ctx context.Context, queryVector []float32, limit int) ([]retrieval.Result, error) {
	near := s.client.GraphQL().NearVectorArgBuilder().
		WithVector(queryVector)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "url"},
		{Name: "chunkIndex"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(near).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.Result
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if chunks, ok := data[vector.ClassName].([]interface{}); ok {
			for _, c := range chunks {
				props, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				result := retrieval.Result{}
				if content, ok := props["content"].(string); ok {
					result.Content = content
				}
				if url, ok := props["url"].(string); ok {
					result.URL = url
				}
				if idx, ok := props["chunkIndex"].(float64); ok {
					result.ChunkIndex = int(idx)
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					if distance, ok := additional["distance"].(float64); ok {
						result.Score = float32(1 - distance)
					}
				}
				results = append(results, result)
			}
		}
	}
	return results, nil
}
