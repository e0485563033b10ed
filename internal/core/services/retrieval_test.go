package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-edu/internal/core/domain"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/sercha-edu/internal/core/ports/driving"
)

// ingestText stores text under subject/title through the real ingestion flow
func ingestText(t *testing.T, f *ingestFixture, subject, title, text string) *domain.IngestResult {
	t.Helper()
	path := "/docs/" + subject + "-" + title + ".txt"
	f.extractor.Add(path, text, map[string]string{"title": title})
	result, err := f.service(true).Ingest(context.Background(), driving.IngestRequest{Path: path, Subject: subject})
	require.NoError(t, err)
	return result
}

func newRetrieval(f *ingestFixture) driving.RetrievalService {
	return NewRetrievalService(f.index, f.embedding, f.config, nil)
}

func TestRetrievalService_Fetch_RoundTrip(t *testing.T) {
	f := newIngestFixture()
	text := ww1Text(6000)
	ingestText(t, f, "history", ww1Title, text)

	passages, err := newRetrieval(f).Fetch(context.Background(), "history", ww1Title)
	require.NoError(t, err)
	require.Len(t, passages, 4)

	for i, p := range passages {
		assert.Equal(t, ww1Title, p.Title)
		assert.Equal(t, i, p.ChunkIndex)
	}
	assert.Equal(t, text, domain.ReconstructText(passages))
}

func TestRetrievalService_Fetch_OrdersByChunkIndex(t *testing.T) {
	f := newIngestFixture()
	f.index.ReverseTies = true
	ingestText(t, f, "history", ww1Title, ww1Text(6000))

	passages, err := newRetrieval(f).Fetch(context.Background(), "history", ww1Title)
	require.NoError(t, err)
	require.Len(t, passages, 4)
	for i, p := range passages {
		assert.Equal(t, i, p.ChunkIndex)
	}
}

func TestRetrievalService_Fetch_UnknownTitle(t *testing.T) {
	f := newIngestFixture()
	ingestText(t, f, "history", ww1Title, ww1Text(3000))

	passages, err := newRetrieval(f).Fetch(context.Background(), "history", "Nonexistent Book")
	require.NoError(t, err)
	assert.NotNil(t, passages)
	assert.Empty(t, passages)
}

func TestRetrievalService_Fetch_RequiresSubjectAndTitle(t *testing.T) {
	svc := newRetrieval(newIngestFixture())

	_, err := svc.Fetch(context.Background(), "", ww1Title)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Fetch(context.Background(), "history", " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_Fetch_UsesZeroVectorAndTitleFilter(t *testing.T) {
	f := newIngestFixture()
	var got domain.VectorQuery
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		got = q
		return nil, nil
	}

	_, err := newRetrieval(f).Fetch(context.Background(), "history", ww1Title)
	require.NoError(t, err)

	assert.Equal(t, "history", got.Namespace)
	assert.Equal(t, 100, got.TopK)
	assert.Equal(t, map[string]string{"title": ww1Title}, got.Filter)
	assert.True(t, got.IncludeMetadata)
	require.Len(t, got.Vector, 1536)
	for _, v := range got.Vector {
		require.Zero(t, v)
	}
}

func TestRetrievalService_Fetch_IndexFailure(t *testing.T) {
	f := newIngestFixture()
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	_, err := newRetrieval(f).Fetch(context.Background(), "history", ww1Title)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestRetrievalService_Search(t *testing.T) {
	f := newIngestFixture()
	ingestText(t, f, "history", ww1Title, ww1Text(6000))

	result, err := newRetrieval(f).Search(context.Background(), "What caused World War 1?", "history", domain.SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "What caused World War 1?", result.Query)
	assert.Equal(t, "history", result.Subject)
	assert.Equal(t, 0.45, result.Threshold)
	require.NotEmpty(t, result.Matches)
	assert.LessOrEqual(t, len(result.Matches), 5)
	for _, m := range result.Matches {
		assert.GreaterOrEqual(t, m.Score, 0.45)
		assert.Equal(t, ww1Title, m.Title)
		assert.NotEmpty(t, m.Text)
	}
}

func TestRetrievalService_Search_ThresholdInvariant(t *testing.T) {
	f := newIngestFixture()
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		return []domain.VectorMatch{
			{ID: "a_0", Score: 0.91, Metadata: domain.RecordMetadata{Title: "a", Text: "first"}},
			{ID: "a_1", Score: 0.45, Metadata: domain.RecordMetadata{Title: "a", Text: "second", ChunkIndex: 1}},
			{ID: "b_0", Score: 0.4499, Metadata: domain.RecordMetadata{Title: "b", Text: "third"}},
			{ID: "b_1", Score: 0.12, Metadata: domain.RecordMetadata{Title: "b", Text: "fourth", ChunkIndex: 1}},
		}, nil
	}

	result, err := newRetrieval(f).Search(context.Background(), "anything", "history", domain.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, result.Matches, 2)
	assert.Equal(t, "a_0", result.Matches[0].ID)
	assert.Equal(t, "a_1", result.Matches[1].ID)
	assert.Equal(t, 1, result.Matches[1].ChunkIndex)
}

func TestRetrievalService_Search_ZeroThresholdKeepsEveryMatch(t *testing.T) {
	f := newIngestFixture()
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		return []domain.VectorMatch{
			{ID: "a_0", Score: 0.91, Metadata: domain.RecordMetadata{Title: "a"}},
			{ID: "b_0", Score: 0.12, Metadata: domain.RecordMetadata{Title: "b"}},
			{ID: "c_0", Score: 0, Metadata: domain.RecordMetadata{Title: "c"}},
		}, nil
	}

	result, err := newRetrieval(f).Search(context.Background(), "anything", "history", domain.SearchOptions{Threshold: domain.ScoreThreshold(0)})
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.Threshold)
	require.Len(t, result.Matches, 3)
	assert.Equal(t, "c_0", result.Matches[2].ID)
}

func TestRetrievalService_Search_ThresholdOutOfRange(t *testing.T) {
	f := newIngestFixture()
	svc := newRetrieval(f)

	for _, threshold := range []float64{-0.1, 1.5} {
		_, err := svc.Search(context.Background(), "query", "history", domain.SearchOptions{Threshold: domain.ScoreThreshold(threshold)})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "threshold %v", threshold)
	}
	assert.Equal(t, 0, f.embedding.Calls())
}

func TestRetrievalService_Search_CustomOptions(t *testing.T) {
	f := newIngestFixture()
	var got domain.VectorQuery
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		got = q
		return []domain.VectorMatch{{ID: "a_0", Score: 0.6}}, nil
	}

	result, err := newRetrieval(f).Search(context.Background(), "query", "history", domain.SearchOptions{TopK: 12, Threshold: domain.ScoreThreshold(0.7)})
	require.NoError(t, err)

	assert.Equal(t, 12, got.TopK)
	assert.Nil(t, got.Filter)
	assert.Empty(t, result.Matches)
	assert.False(t, result.Matches == nil, "empty result must be an empty slice")
}

func TestRetrievalService_Search_EmptyNamespace(t *testing.T) {
	f := newIngestFixture()
	ingestText(t, f, "politics", ww1Title, ww1Text(6000))

	result, err := newRetrieval(f).Search(context.Background(), "What caused World War 1?", "history", domain.SearchOptions{})
	require.NoError(t, err)
	assert.True(t, result.Empty())
}

func TestRetrievalService_Search_Validation(t *testing.T) {
	svc := newRetrieval(newIngestFixture())

	_, err := svc.Search(context.Background(), "  ", "history", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Search(context.Background(), "query", "", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetrievalService_Search_EmbeddingFailure(t *testing.T) {
	f := newIngestFixture()
	f.embedding.SetFailNext(true)

	_, err := newRetrieval(f).Search(context.Background(), "query", "history", domain.SearchOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailure)
}

func TestRetrievalService_ListSubjects(t *testing.T) {
	f := newIngestFixture()
	ingestText(t, f, "history", ww1Title, ww1Text(3000))
	ingestText(t, f, "biology", "Cells", "Cells are the basic unit of life.")
	svc := newRetrieval(f)

	first, err := svc.ListSubjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"biology", "history"}, first)

	second, err := svc.ListSubjects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrievalService_ListSubjects_EmptyIndex(t *testing.T) {
	f := newIngestFixture()
	f.index.StatsFn = func() (*domain.IndexStats, error) {
		return nil, domain.ErrNotFound
	}

	subjects, err := newRetrieval(f).ListSubjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, subjects)
}

func TestRetrievalService_ListSubjects_IndexFailure(t *testing.T) {
	f := newIngestFixture()
	f.index.StatsFn = func() (*domain.IndexStats, error) {
		return nil, errors.New("503 Service Unavailable")
	}

	_, err := newRetrieval(f).ListSubjects(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestRetrievalService_ListTitles(t *testing.T) {
	f := newIngestFixture()
	ingestText(t, f, "history", ww1Title, ww1Text(6000))
	ingestText(t, f, "history", "Treaty of Versailles", "The treaty was signed in 1919.")

	titles, err := newRetrieval(f).ListTitles(context.Background(), "history", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{ww1Title, "Treaty of Versailles"}, titles)
}

func TestRetrievalService_ListTitles_UnknownTitle(t *testing.T) {
	f := newIngestFixture()
	var got domain.VectorQuery
	f.index.QueryFn = func(q domain.VectorQuery) ([]domain.VectorMatch, error) {
		got = q
		return []domain.VectorMatch{
			{ID: "x", Metadata: domain.RecordMetadata{}},
			{ID: "a_0", Metadata: domain.RecordMetadata{Title: "a"}},
			{ID: "y", Metadata: domain.RecordMetadata{}},
		}, nil
	}

	titles, err := newRetrieval(f).ListTitles(context.Background(), "history", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.UnknownTitle, "a"}, titles)
	assert.Equal(t, 20, got.TopK)
}

func TestRetrievalService_ListTitles_EmptySubject(t *testing.T) {
	titles, err := newRetrieval(newIngestFixture()).ListTitles(context.Background(), "history", 0)
	require.NoError(t, err)
	assert.NotNil(t, titles)
	assert.Empty(t, titles)
}

func TestRetrievalService_InterfaceCompliance(t *testing.T) {
	var _ driving.RetrievalService = NewRetrievalService(mocks.NewMockVectorIndex(), mocks.NewMockEmbeddingService(), domain.DefaultPipelineConfig(), nil)
}
