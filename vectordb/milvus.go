package vectordb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/frauddesk/fraudqa/common/logger"
	"github.com/frauddesk/fraudqa/config"
	"github.com/frauddesk/fraudqa/schema"
)

const (
	fieldID       = "id"
	fieldContent  = "content"
	fieldMetadata = "metadata"
	fieldVector   = "vector"
	fieldSeq      = "seq"

	contentMaxLength = 8192
	idMaxLength      = 256
)

// milvusProvider stores document chunks in a Milvus collection. The seq
// field carries insertion order so equal-similarity hits keep a stable,
// first-indexed-wins ordering.
type milvusProvider struct {
	cli        client.Client
	collection string
	dim        int
}

type chunkMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

func newMilvusProvider(cfg *config.VectorDBConfig, dim int) (*milvusProvider, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	cli, err := client.NewClient(context.Background(), client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus at %s: %w", addr, err)
	}

	p := &milvusProvider{cli: cli, collection: cfg.Collection, dim: dim}
	if err := p.ensureCollection(context.Background()); err != nil {
		cli.Close()
		return nil, err
	}
	return p, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context) error {
	has, err := p.cli.HasCollection(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", p.collection, err)
	}
	if has {
		return p.cli.LoadCollection(ctx, p.collection, false)
	}

	sch := entity.NewSchema().
		WithName(p.collection).
		WithDescription("fraud research document chunks").
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(idMaxLength).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(contentMaxLength)).
		WithField(entity.NewField().WithName(fieldMetadata).WithDataType(entity.FieldTypeVarChar).WithMaxLength(idMaxLength * 4)).
		WithField(entity.NewField().WithName(fieldSeq).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(p.dim)))

	if err := p.cli.CreateCollection(ctx, sch, 1); err != nil {
		return fmt.Errorf("create collection %s: %w", p.collection, err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	if err != nil {
		return fmt.Errorf("build hnsw index params: %w", err)
	}
	if err := p.cli.CreateIndex(ctx, p.collection, fieldVector, idx, false); err != nil {
		return fmt.Errorf("create index on %s: %w", p.collection, err)
	}
	logger.Infof("vectordb: created milvus collection %s (dim=%d)", p.collection, p.dim)
	return p.cli.LoadCollection(ctx, p.collection, false)
}

func (p *milvusProvider) AddChunks(ctx context.Context, chunks []schema.DocumentChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil
	}

	// seq only needs to grow across inserts; wall-clock nanos stay
	// monotonic even after deletes shrink the row count
	base := time.Now().UnixNano()

	ids := make([]string, len(chunks))
	contents := make([]string, len(chunks))
	metas := make([]string, len(chunks))
	seqs := make([]int64, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		contents[i] = truncate(c.Content, contentMaxLength)
		meta, _ := json.Marshal(chunkMetadata{Source: c.Source, Page: c.Page})
		metas[i] = string(meta)
		seqs[i] = base + int64(i)
	}

	_, err := p.cli.Insert(ctx, p.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnVarChar(fieldMetadata, metas),
		entity.NewColumnInt64(fieldSeq, seqs),
		entity.NewColumnFloatVector(fieldVector, p.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(chunks), err)
	}
	return p.cli.Flush(ctx, p.collection, false)
}

func (p *milvusProvider) SearchChunks(ctx context.Context, vector []float32, opts *SearchOptions) ([]schema.RetrievedPassage, error) {
	topK := 10
	threshold := 0.0
	if opts != nil {
		if opts.TopK > 0 {
			topK = opts.TopK
		}
		threshold = opts.Threshold
	}

	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	results, err := p.cli.Search(ctx, p.collection, nil, "",
		[]string{fieldID, fieldContent, fieldMetadata, fieldSeq},
		[]entity.Vector{entity.FloatVector(vector)},
		fieldVector, entity.COSINE, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	res := results[0]
	var (
		idCol      *entity.ColumnVarChar
		contentCol *entity.ColumnVarChar
		metaCol    *entity.ColumnVarChar
		seqCol     *entity.ColumnInt64
	)
	for _, f := range res.Fields {
		switch f.Name() {
		case fieldID:
			idCol, _ = f.(*entity.ColumnVarChar)
		case fieldContent:
			contentCol, _ = f.(*entity.ColumnVarChar)
		case fieldMetadata:
			metaCol, _ = f.(*entity.ColumnVarChar)
		case fieldSeq:
			seqCol, _ = f.(*entity.ColumnInt64)
		}
	}
	if idCol == nil || contentCol == nil {
		return nil, fmt.Errorf("milvus search result missing expected fields")
	}

	hits := make([]searchHit, 0, res.ResultCount)
	for i := 0; i < res.ResultCount; i++ {
		score := float64(res.Scores[i])
		if score < threshold {
			continue
		}
		id, err := idCol.ValueByIdx(i)
		if err != nil {
			continue
		}
		content, err := contentCol.ValueByIdx(i)
		if err != nil {
			continue
		}
		var meta chunkMetadata
		if metaCol != nil {
			if raw, err := metaCol.ValueByIdx(i); err == nil {
				_ = json.Unmarshal([]byte(raw), &meta)
			}
		}
		var seq int64
		if seqCol != nil {
			if v, err := seqCol.ValueByIdx(i); err == nil {
				seq = v
			}
		}
		hits = append(hits, searchHit{
			chunk: schema.DocumentChunk{ID: id, Content: content, Source: meta.Source, Page: meta.Page},
			score: score,
			seq:   seq,
		})
	}
	return rankSearchHits(hits), nil
}

type searchHit struct {
	chunk schema.DocumentChunk
	score float64
	seq   int64
}

// rankSearchHits orders hits by descending similarity with ties broken by
// insertion order (first-indexed wins) and assigns final ranks.
func rankSearchHits(hits []searchHit) []schema.RetrievedPassage {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].seq < hits[j].seq
	})
	out := make([]schema.RetrievedPassage, len(hits))
	for i, h := range hits {
		out[i] = schema.RetrievedPassage{Chunk: h.chunk, Score: h.score, Rank: i + 1}
	}
	return out
}

func (p *milvusProvider) DeleteBySource(ctx context.Context, source string) error {
	key, err := json.Marshal(source)
	if err != nil {
		return fmt.Errorf("encode source %q: %w", source, err)
	}
	// metadata is the marshaled chunkMetadata, so this substring matches
	// exactly the chunks ingested from source
	needle := strings.ReplaceAll(fmt.Sprintf(`"source":%s`, key), `"`, `\"`)
	expr := fmt.Sprintf(`%s like "%%%s%%"`, fieldMetadata, needle)
	if err := p.cli.Delete(ctx, p.collection, "", expr); err != nil {
		return fmt.Errorf("delete chunks for %s: %w", source, err)
	}
	return p.cli.Flush(ctx, p.collection, false)
}

func (p *milvusProvider) Count(ctx context.Context) (int64, error) {
	stats, err := p.cli.GetCollectionStatistics(ctx, p.collection)
	if err != nil {
		return 0, fmt.Errorf("collection statistics: %w", err)
	}
	var n int64
	if raw, ok := stats["row_count"]; ok {
		fmt.Sscanf(raw, "%d", &n)
	}
	return n, nil
}

func (p *milvusProvider) Close() error { return p.cli.Close() }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
