// Package qdrantvec provides a Qdrant-backed vector driver for deployments
// that want a served index instead of the default on-disk sqlite-vec file.
package qdrantvec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mediguideco/mediguide/pkg/vector"
)

const metaPointID = 1

// Driver implements vector.Driver against a Qdrant instance.
type Driver struct {
	client     *qdrant.Client
	collection string
	metaColl   string
	logger     *slog.Logger
}

// Config holds configuration for the Qdrant driver.
type Config struct {
	// Target is the Qdrant gRPC address, e.g. "localhost:6334".
	Target string

	// Collection is the collection name holding chunk embeddings.
	Collection string

	// Model is the embedding model identifier the index is stamped with.
	Model string

	// Dimensions is the number of dimensions for the embedding vectors.
	Dimensions uint
}

// NewDriver connects to Qdrant and ensures the chunk and stamp collections
// exist. Opening an existing collection whose stamp does not match the
// configured model returns vector.ErrIncompatible.
func NewDriver(ctx context.Context, c Config, logger *slog.Logger) (*Driver, error) {
	if c.Target == "" {
		return nil, fmt.Errorf("qdrant target is required")
	}
	if c.Collection == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if c.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("qdrant embedding dimensions cannot be 0, must be configured")
	}

	host, portStr, err := net.SplitHostPort(c.Target)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant target %q: %w", c.Target, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("parsing qdrant port %q: %w", portStr, err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant: %v", vector.ErrConnection, err)
	}

	d := &Driver{
		client:     client,
		collection: c.Collection,
		metaColl:   c.Collection + "_meta",
		logger:     logger,
	}

	if err := d.ensureCollections(ctx, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	if err := d.checkStamp(ctx, c.Model, c.Dimensions); err != nil {
		client.Close()
		return nil, err
	}

	logger.Info("qdrant vector driver initialized",
		"target", c.Target,
		"collection", c.Collection,
		"model", c.Model,
		"dimensions", c.Dimensions,
	)

	return d, nil
}

func (d *Driver) ensureCollections(ctx context.Context, dimensions uint) error {
	exists, err := d.client.CollectionExists(ctx, d.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection: %v", vector.ErrConnection, err)
	}
	if !exists {
		err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating collection %s: %w", d.collection, err)
		}
	}

	exists, err = d.client.CollectionExists(ctx, d.metaColl)
	if err != nil {
		return fmt.Errorf("%w: checking meta collection: %v", vector.ErrConnection, err)
	}
	if !exists {
		// The stamp collection holds a single payload-only point; the
		// 1-dim vector is a placeholder.
		err = d.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: d.metaColl,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     1,
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("creating meta collection %s: %w", d.metaColl, err)
		}
	}

	return nil
}

func (d *Driver) checkStamp(ctx context.Context, model string, dimensions uint) error {
	stored, err := d.Meta(ctx)
	if errors.Is(err, vector.ErrNotFound) {
		return d.writeStamp(ctx, vector.Meta{Model: model, Dimensions: dimensions})
	}
	if err != nil {
		return err
	}

	if stored.Model != model || stored.Dimensions != dimensions {
		return fmt.Errorf(
			"%w: index built with %s/%d, configured %s/%d",
			vector.ErrIncompatible, stored.Model, stored.Dimensions, model, dimensions,
		)
	}

	return nil
}

func (d *Driver) writeStamp(ctx context.Context, m vector.Meta) error {
	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.metaColl,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDNum(metaPointID),
				Vectors: qdrant.NewVectors(0),
				Payload: qdrant.NewValueMap(map[string]any{
					"model":      m.Model,
					"dimensions": int64(m.Dimensions),
				}),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("stamping index: %w", err)
	}
	return nil
}

// pointID derives a deterministic Qdrant point UUID from a chunk ID so
// re-adding the same chunk updates in place.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

// Add upserts documents with their embeddings.
func (d *Driver) Add(ctx context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(doc.ID),
			Vectors: qdrant.NewVectors(doc.Embedding...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id": doc.ID,
				"source":   doc.Source,
				"ordinal":  int64(doc.Ordinal),
				"content":  doc.Text,
				"seq":      int64(i),
			}),
		})
	}

	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: d.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting chunks: %w", err)
	}

	d.logger.Debug("added chunks to qdrant", "count", len(docs))

	return nil
}

// Query finds the topK most similar documents to the given embedding.
func (d *Driver) Query(ctx context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		topK = 10
	}

	points, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: d.collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying qdrant: %w", err)
	}

	results := make([]vector.QueryResult, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		results = append(results, vector.QueryResult{
			Document: vector.Document{
				ID:      payload["chunk_id"].GetStringValue(),
				Source:  payload["source"].GetStringValue(),
				Ordinal: int(payload["ordinal"].GetIntegerValue()),
				Text:    payload["content"].GetStringValue(),
			},
			Score: p.GetScore(),
		})
	}

	d.logger.Debug("queried qdrant", "results", len(results))

	return results, nil
}

// Count returns the number of stored chunks.
func (d *Driver) Count(ctx context.Context) (int, error) {
	count, err := d.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: d.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(count), nil
}

// Meta returns the compatibility stamp.
func (d *Driver) Meta(ctx context.Context) (vector.Meta, error) {
	points, err := d.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: d.metaColl,
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(metaPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return vector.Meta{}, fmt.Errorf("reading index stamp: %w", err)
	}
	if len(points) == 0 {
		return vector.Meta{}, fmt.Errorf("%w: index stamp", vector.ErrNotFound)
	}

	payload := points[0].GetPayload()
	return vector.Meta{
		Model:      payload["model"].GetStringValue(),
		Dimensions: uint(payload["dimensions"].GetIntegerValue()),
	}, nil
}

// Reset drops and recreates the chunk collection, then restamps the index.
func (d *Driver) Reset(ctx context.Context, m vector.Meta) error {
	if err := d.client.DeleteCollection(ctx, d.collection); err != nil {
		return fmt.Errorf("dropping collection %s: %w", d.collection, err)
	}

	err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: d.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(m.Dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("recreating collection %s: %w", d.collection, err)
	}

	if err := d.writeStamp(ctx, m); err != nil {
		return err
	}

	d.logger.Debug("reset qdrant index", "model", m.Model, "dimensions", m.Dimensions)

	return nil
}

// Close releases the client connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
