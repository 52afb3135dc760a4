// Package qdrant implements the vector index adapter (spec.md section
// 4.4) over the official github.com/qdrant/go-client driver.
package qdrant

import (
	"context"
	"crypto/md5"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	qc "github.com/qdrant/go-client/qdrant"
)

// CollectionName is fixed by contract: one collection, "capabilities".
const CollectionName = "capabilities"

// VectorSize is fixed by contract to match internal/embed.Dim.
const VectorSize = 384

// Point is one upserted vector plus its discovery payload.
type Point struct {
	PointID      string
	Vector       []float32
	AgentDID     string
	CapabilityID string
	Description  string
	Tags         []string
}

// Hit is one search result.
type Hit struct {
	Score        float32
	AgentDID     string
	CapabilityID string
	Description  string
	Tags         []string
}

// Store wraps the qdrant gRPC client.
type Store struct {
	client *qc.Client
}

// Open parses a Qdrant base URL of the form "http://host:6333" (the REST
// port) and connects on the adjacent gRPC port (REST port + 1, Qdrant's
// default layout), then ensures the capabilities collection exists.
func Open(ctx context.Context, rawURL string) (*Store, error) {
	host, port, err := parseQdrantURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant url %q: %w", rawURL, err)
	}

	client, err := qc.NewClient(&qc.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	s := &Store{client: client}
	if err := s.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return s, nil
}

func parseQdrantURL(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, err
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	restPort := 6333
	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			restPort = n
		}
	}
	// Qdrant's default deployment exposes gRPC one port above REST.
	return host, restPort + 1, nil
}

// EnsureCollection creates the collection if absent; if present, it sends
// an empty vector-parameter update and treats a rejected update as
// success, making the call idempotent either way. The size and distance
// of an existing collection are not checked.
func (s *Store) EnsureCollection(ctx context.Context) error {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	exists := false
	for _, n := range names {
		if n == CollectionName {
			exists = true
			break
		}
	}

	vectorsConfig := qc.NewVectorsConfig(&qc.VectorParams{
		Size:     uint64(VectorSize),
		Distance: qc.Distance_Cosine,
	})

	if !exists {
		return s.client.CreateCollection(ctx, &qc.CreateCollection{
			CollectionName: CollectionName,
			VectorsConfig:  vectorsConfig,
		})
	}

	_, err = s.client.UpdateCollection(ctx, &qc.UpdateCollection{
		CollectionName: CollectionName,
		VectorsConfig:  &qc.VectorsConfigDiff{Config: &qc.VectorsConfigDiff_Params{Params: &qc.VectorParamsDiff{}}},
	})
	if err != nil {
		// Not every Qdrant version accepts a no-op vector reconfiguration;
		// an already-matching collection is still a successful ensure.
		return nil
	}
	return nil
}

// UpsertPoint inserts or replaces a single point.
func (s *Store) UpsertPoint(ctx context.Context, p Point) error {
	payload := map[string]interface{}{
		"agentDid":     p.AgentDID,
		"capabilityId": p.CapabilityID,
		"description":  p.Description,
		"tags":         tagsToInterfaceSlice(p.Tags),
	}

	point := &qc.PointStruct{
		Id:      qc.NewIDNum(pointIDToNum(p.PointID)),
		Vectors: qc.NewVectors(p.Vector...),
		Payload: qc.NewValueMap(payload),
	}

	_, err := s.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: CollectionName,
		Points:         []*qc.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point %s: %w", p.PointID, err)
	}
	return nil
}

// Search returns at most limit nearest neighbors to vector by cosine
// similarity.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]Hit, error) {
	result, err := s.client.Query(ctx, &qc.QueryPoints{
		CollectionName: CollectionName,
		Query:          qc.NewQuery(vector...),
		Limit:          qc.PtrOf(uint64(limit)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(result))
	for _, point := range result {
		payload := point.GetPayload()
		hits = append(hits, Hit{
			Score:        point.GetScore(),
			AgentDID:     stringFromPayload(payload, "agentDid"),
			CapabilityID: stringFromPayload(payload, "capabilityId"),
			Description:  stringFromPayload(payload, "description"),
			Tags:         tagsFromPayload(payload),
		})
	}
	return hits, nil
}

// DeleteByAgent deletes every point whose payload's agentDid field
// equals did.
func (s *Store) DeleteByAgent(ctx context.Context, did string) error {
	filter := &qc.Filter{
		Must: []*qc.Condition{
			qc.NewMatch("agentDid", did),
		},
	}

	_, err := s.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: CollectionName,
		Points: &qc.PointsSelector{
			PointsSelectorOneOf: &qc.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points for agent %s: %w", did, err)
	}
	return nil
}

// Ping verifies connectivity for the health probe.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// pointIDToNum derives a uint64 point id from the policy-level string id
// (a fresh UUID per spec.md's point-ID policy), the way this collection's
// points have always been addressed.
func pointIDToNum(id string) uint64 {
	hash := md5.Sum([]byte(id))
	var n uint64
	for i := 0; i < 8; i++ {
		n = (n << 8) | uint64(hash[i])
	}
	return n
}

func tagsToInterfaceSlice(tags []string) []interface{} {
	out := make([]interface{}, len(tags))
	for i, t := range tags {
		out[i] = t
	}
	return out
}

func stringFromPayload(payload map[string]*qc.Value, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	return v.GetStringValue()
}

func tagsFromPayload(payload map[string]*qc.Value) []string {
	v, ok := payload["tags"]
	if !ok || v == nil {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		out = append(out, strings.TrimSpace(item.GetStringValue()))
	}
	return out
}
