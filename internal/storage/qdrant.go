package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/filter"
	"github.com/harinath-reddy-b/ally-legal-assistant-dev/internal/lexical"
)

// LexicalVector is the name of the sparse vector holding term counts.
const LexicalVector = "lexical"

const (
	upsertBatchSize = 100
	scrollPageSize  = 100
	// defaultTop caps hybrid queries that set neither Top nor K.
	defaultTop = 50
)

// pointNamespace derives stable point ids from record keys; Qdrant only accepts UUIDs or integers.
var pointNamespace = uuid.MustParse("6f1d2c9e-4b3a-5e8f-9a7d-1c2b3e4f5a6b")

// QdrantConfig holds connection settings.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// QdrantStorage implements Index on Qdrant: one collection per index, a named
// dense vector for embeddings and a sparse vector for the lexical leg.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int

	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(cfg QdrantConfig) (*QdrantStorage, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:  client,
		host:    cfg.Host,
		port:    cfg.Port,
		schemas: make(map[string]Schema),
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// EnsureIndex creates the collection and its payload indexes when missing.
// An existing collection is left as is; the schema is remembered either way
// so later uploads know the key and vector fields.
func (s *QdrantStorage) EnsureIndex(ctx context.Context, schema Schema) (EnsureResult, error) {
	if err := schema.Validate(); err != nil {
		return IndexExists, err
	}

	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return IndexExists, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == schema.Name {
			s.remember(schema)
			return IndexExists, nil
		}
	}

	hnsw := schema.Vector.HNSW
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: schema.Name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			schema.Vector.Field: {
				Size:     uint64(schema.Vector.Dimensions),
				Distance: qdrant.Distance_Cosine,
				HnswConfig: &qdrant.HnswConfigDiff{
					M:           qdrant.PtrOf(uint64(hnsw.M)),
					EfConstruct: qdrant.PtrOf(uint64(hnsw.EfConstruction)),
				},
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			LexicalVector: {Modifier: qdrant.Modifier_Idf.Enum()},
		}),
	})
	if err != nil {
		return IndexExists, fmt.Errorf("failed to create collection %s: %w", schema.Name, err)
	}

	if err := s.createPayloadIndexes(ctx, schema); err != nil {
		return IndexCreated, fmt.Errorf("failed to create payload indexes: %w", err)
	}

	s.remember(schema)
	return IndexCreated, nil
}

// createPayloadIndexes indexes every filterable or sortable field.
// Without these indexes, filtering becomes 10-100x slower.
func (s *QdrantStorage) createPayloadIndexes(ctx context.Context, schema Schema) error {
	for _, field := range schema.IndexedFields() {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: schema.Name,
			FieldName:      field.Name,
			FieldType:      payloadIndexType(field.Type).Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field.Name, err)
		}
	}
	return nil
}

func payloadIndexType(t FieldType) qdrant.FieldType {
	switch t {
	case TypeInt32:
		return qdrant.FieldType_FieldTypeInteger
	case TypeBoolean:
		return qdrant.FieldType_FieldTypeBool
	}
	// Dates are stored as RFC 3339 text and matched exactly.
	return qdrant.FieldType_FieldTypeKeyword
}

func (s *QdrantStorage) remember(schema Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.Name] = schema
}

func (s *QdrantStorage) schema(index string) (Schema, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[index]
	if !ok {
		return Schema{}, fmt.Errorf("%w: %s (call EnsureIndex first)", ErrIndexNotFound, index)
	}
	return schema, nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// Upload upserts documents in batches of 100. Records that fail validation
// are reported with 400; a batch that still fails after retries marks its
// records 503 and the joined transport errors are returned.
func (s *QdrantStorage) Upload(ctx context.Context, index string, docs []Document) ([]UploadResult, error) {
	schema, err := s.schema(index)
	if err != nil {
		return nil, err
	}

	results := make([]UploadResult, len(docs))
	var pending []int
	var points []*qdrant.PointStruct
	for i, doc := range docs {
		key, err := validateDocument(schema, doc)
		if err != nil {
			results[i] = UploadResult{Key: key, StatusCode: http.StatusBadRequest, Err: err}
			continue
		}
		results[i] = UploadResult{Key: key}
		pending = append(pending, i)
		points = append(points, toPoint(schema, key, doc))
	}

	var errs []error
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		err := s.upsertWithRetry(ctx, index, points[start:end])
		for _, i := range pending[start:end] {
			if err != nil {
				results[i].StatusCode = http.StatusServiceUnavailable
				results[i].Err = err
				continue
			}
			results[i].Succeeded = true
			results[i].StatusCode = http.StatusOK
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to upsert batch %d-%d: %w", start, end, err))
		}
	}
	return results, errors.Join(errs...)
}

func toPoint(schema Schema, key string, doc Document) *qdrant.PointStruct {
	vectors := map[string]*qdrant.Vector{
		schema.Vector.Field: qdrant.NewVector(doc.Vector(schema.Vector.Field)...),
	}
	if sparse := lexical.Vectorize(searchableText(doc, schema.SearchableFields())); !sparse.Empty() {
		vectors[LexicalVector] = qdrant.NewVectorSparse(sparse.Indices, sparse.Values)
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(pointID(key)),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: qdrant.NewValueMap(toPayload(schema, doc)),
	}
}

func pointID(key string) string {
	return uuid.NewSHA1(pointNamespace, []byte(key)).String()
}

// toPayload converts a document to values NewValueMap accepts.
func toPayload(schema Schema, doc Document) map[string]any {
	payload := make(map[string]any, len(doc))
	for name, v := range doc {
		if name == schema.Vector.Field {
			continue
		}
		switch x := v.(type) {
		case []string:
			list := make([]any, len(x))
			for i, s := range x {
				list[i] = s
			}
			payload[name] = list
		case time.Time:
			payload[name] = x.UTC().Format(time.RFC3339Nano)
		case int:
			payload[name] = int64(x)
		case int32:
			payload[name] = int64(x)
		default:
			payload[name] = v
		}
	}
	return payload
}

func fromPayload(schema Schema, payload map[string]*qdrant.Value) Document {
	doc := make(Document, len(payload))
	for name, v := range payload {
		field, declared := schema.Field(name)
		if !declared {
			doc[name] = valueToAny(v)
			continue
		}
		switch field.Type {
		case TypeString, TypeDateTimeOffset:
			doc[name] = v.GetStringValue()
		case TypeInt32:
			doc[name] = int(v.GetIntegerValue())
		case TypeBoolean:
			doc[name] = v.GetBoolValue()
		case TypeStringCollection:
			list := []string{}
			if lv := v.GetListValue(); lv != nil {
				for _, e := range lv.Values {
					list = append(list, e.GetStringValue())
				}
			}
			doc[name] = list
		default:
			doc[name] = valueToAny(v)
		}
	}
	return doc
}

func valueToAny(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(k.ListValue.GetValues()))
		for _, e := range k.ListValue.GetValues() {
			out = append(out, valueToAny(e))
		}
		return out
	}
	return nil
}

// Count returns the exact number of points matching f.
func (s *QdrantStorage) Count(ctx context.Context, index string, f filter.Expr) (int64, error) {
	qf, never, err := toQdrantFilter(f)
	if err != nil {
		return 0, err
	}
	if never {
		return 0, nil
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: index,
		Filter:         qf,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", index, err)
	}
	return int64(n), nil
}

// Search runs a filtered scroll when the request has neither text nor vector,
// a single-leg query when it has one, and an RRF-fused prefetch query when it has both.
func (s *QdrantStorage) Search(ctx context.Context, index string, req SearchRequest) ([]Hit, error) {
	schema, err := s.schema(index)
	if err != nil {
		return nil, err
	}
	qf, never, err := toQdrantFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	if never {
		return []Hit{}, nil
	}

	var sparse lexical.SparseVector
	if req.HasText() {
		sparse = lexical.Vectorize(req.Text)
	}
	if req.Vector == nil && sparse.Empty() {
		if req.HasText() {
			// Every query term is a stopword; nothing can match lexically.
			return []Hit{}, nil
		}
		return s.scrollAll(ctx, schema, qf, req)
	}

	if req.Vector != nil && len(req.Vector.Vector) != schema.Vector.Dimensions {
		return nil, fmt.Errorf("query vector %w", dimensionError(len(req.Vector.Vector), schema.Vector.Dimensions))
	}

	limit := req.Top
	if limit <= 0 && req.Vector != nil {
		limit = req.Vector.K
	}
	if limit <= 0 {
		limit = defaultTop
	}

	query := &qdrant.QueryPoints{
		CollectionName: index,
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    withPayload(req.Select),
		WithVectors:    qdrant.NewWithVectors(false),
	}

	switch {
	case req.Vector != nil && !sparse.Empty():
		dense, using, params := denseLeg(schema, req.Vector)
		k := uint64(max(req.Vector.K, limit))
		query.Prefetch = []*qdrant.PrefetchQuery{
			{Query: dense, Using: &using, Filter: qf, Params: params, Limit: qdrant.PtrOf(k)},
			{Query: qdrant.NewQuerySparse(sparse.Indices, sparse.Values), Using: qdrant.PtrOf(LexicalVector), Filter: qf, Limit: qdrant.PtrOf(k)},
		}
		query.Query = qdrant.NewQueryFusion(qdrant.Fusion_RRF)
	case req.Vector != nil:
		dense, using, params := denseLeg(schema, req.Vector)
		query.Query = dense
		query.Using = &using
		query.Params = params
		query.Filter = qf
	default:
		query.Query = qdrant.NewQuerySparse(sparse.Indices, sparse.Values)
		query.Using = qdrant.PtrOf(LexicalVector)
		query.Filter = qf
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", index, err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{Document: fromPayload(schema, r.Payload), Score: float64(r.Score)})
	}
	orderHits(hits, req.OrderBy)
	return hits, nil
}

func denseLeg(schema Schema, q *VectorQuery) (*qdrant.Query, string, *qdrant.SearchParams) {
	using := q.Field
	if using == "" {
		using = schema.Vector.Field
	}
	params := &qdrant.SearchParams{
		HnswEf: qdrant.PtrOf(uint64(schema.Vector.HNSW.EfSearch)),
		Exact:  qdrant.PtrOf(q.Exhaustive),
	}
	return qdrant.NewQuery(q.Vector...), using, params
}

func withPayload(selectFields []string) *qdrant.WithPayloadSelector {
	if len(selectFields) == 0 {
		return qdrant.NewWithPayload(true)
	}
	return qdrant.NewWithPayloadInclude(selectFields...)
}

// scrollAll pages through every matching point. OrderBy is applied after the
// scan because scroll order is by point id.
func (s *QdrantStorage) scrollAll(ctx context.Context, schema Schema, qf *qdrant.Filter, req SearchRequest) ([]Hit, error) {
	var hits []Hit
	var offset *qdrant.PointId

	// The sort field must be fetched even when it is not selected.
	selectFields := req.Select
	orderField := ""
	if parts := strings.Fields(req.OrderBy); len(parts) > 0 {
		orderField = parts[0]
		if len(selectFields) > 0 && !contains(selectFields, orderField) {
			selectFields = append(append([]string{}, selectFields...), orderField)
		}
	}

	for {
		// Offset is inclusive, so the next page starts at the id Qdrant returns.
		results, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: schema.Name,
			Filter:         qf,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			Offset:         offset,
			WithPayload:    withPayload(selectFields),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll %s: %w", schema.Name, err)
		}
		for _, r := range results {
			hits = append(hits, Hit{Document: fromPayload(schema, r.Payload), Score: 1})
		}
		if next == nil || len(results) == 0 {
			break
		}
		offset = next
	}

	orderHits(hits, req.OrderBy)
	if req.Top > 0 && len(hits) > req.Top {
		hits = hits[:req.Top]
	}
	if orderField != "" && len(req.Select) > 0 && !contains(req.Select, orderField) {
		for i := range hits {
			hits[i].Document = hits[i].Document.Project(req.Select, schema.Vector.Field)
		}
	}
	return hits, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toQdrantFilter translates a filter expression into Qdrant conditions.
// never is true when the expression cannot match any point.
func toQdrantFilter(expr filter.Expr) (f *qdrant.Filter, never bool, err error) {
	if expr == nil {
		return nil, false, nil
	}
	cond, never, err := toCondition(expr)
	if err != nil || never {
		return nil, never, err
	}
	return &qdrant.Filter{Must: []*qdrant.Condition{cond}}, false, nil
}

func toCondition(expr filter.Expr) (*qdrant.Condition, bool, error) {
	switch e := expr.(type) {
	case filter.Comparison:
		switch v := e.Value.(type) {
		case string:
			return qdrant.NewMatch(e.Field, v), false, nil
		case int64:
			return qdrant.NewMatchInt(e.Field, v), false, nil
		case bool:
			return qdrant.NewMatchBool(e.Field, v), false, nil
		case time.Time:
			return qdrant.NewMatch(e.Field, v.UTC().Format(time.RFC3339Nano)), false, nil
		}
		return nil, false, fmt.Errorf("%w: %s", ErrUnsupportedFilter, e)
	case filter.Membership:
		if len(e.Values) == 0 {
			return nil, true, nil
		}
		return qdrant.NewMatchKeywords(e.Field, e.Values...), false, nil
	case filter.Group:
		var conds []*qdrant.Condition
		for _, child := range e.Exprs {
			c, never, err := toCondition(child)
			if err != nil {
				return nil, false, err
			}
			if never {
				if e.Op == filter.OpAnd {
					return nil, true, nil
				}
				continue
			}
			conds = append(conds, c)
		}
		if len(conds) == 0 {
			return nil, true, nil
		}
		if e.Op == filter.OpOr {
			return qdrant.NewFilterAsCondition(&qdrant.Filter{Should: conds}), false, nil
		}
		return qdrant.NewFilterAsCondition(&qdrant.Filter{Must: conds}), false, nil
	}
	return nil, false, fmt.Errorf("%w: %T", ErrUnsupportedFilter, expr)
}
