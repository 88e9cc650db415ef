package es

import (
	"context"
	"errors"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/goccy/go-json"
)

const MaxSearchDepth = 400

type ThreadRepo interface {
	IndexThread(ctx context.Context, thread *ThreadES) error
	DeleteThread(ctx context.Context, id uint64) error
	SearchThreads(ctx context.Context, workspaceID uint64, keyword string, from, size int) ([]*ThreadES, error)
}

type ThreadRepoImpl struct {
	client *elasticsearch.TypedClient
}

func NewThreadRepo(client *elasticsearch.TypedClient) ThreadRepo {
	return &ThreadRepoImpl{client: client}
}

func (s *ThreadRepoImpl) IndexThread(ctx context.Context, thread *ThreadES) error {
	docID := strconv.FormatUint(thread.ID, 10)
	_, err := s.client.Index(ThreadIndex).
		Id(docID).
		Document(thread).
		Do(ctx)
	return err
}

func (s *ThreadRepoImpl) DeleteThread(ctx context.Context, id uint64) error {
	docID := strconv.FormatUint(id, 10)

	_, err := s.client.Delete(ThreadIndex, docID).Do(ctx)
	if err != nil {
		var e *types.ElasticsearchError
		if errors.As(err, &e) {
			if e.Status == NotFoundCode {
				return nil
			}
		}
		return err
	}
	return nil
}

// SearchThreads 工作区内按对端名/消息正文/摘要/标签搜会话
func (s *ThreadRepoImpl) SearchThreads(ctx context.Context, workspaceID uint64, keyword string, from, size int) ([]*ThreadES, error) {
	if from >= MaxSearchDepth {
		return []*ThreadES{}, nil
	}

	boolQuery := &types.BoolQuery{
		Filter: []types.Query{
			{Term: map[string]types.TermQuery{"workspace_id": {Value: workspaceID}}},
		},
	}
	if keyword != "" {
		boolQuery.Must = []types.Query{{
			MultiMatch: &types.MultiMatchQuery{
				Query:  keyword,
				Fields: []string{"peer_display_name^3", "tags^2", "last_message_text", "summary_text"},
			},
		}}
	}

	result, err := s.client.Search().
		Index(ThreadIndex).
		Query(&types.Query{Bool: boolQuery}).
		Sort(types.SortOptions{SortOptions: map[string]types.FieldSort{
			"last_message_at": {Order: &sortorder.Desc},
		}}).
		From(from).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	threads := make([]*ThreadES, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		var thread ThreadES
		if err := json.Unmarshal(hit.Source_, &thread); err != nil {
			return nil, err
		}
		if thread.Tags == nil {
			thread.Tags = make([]string, 0)
		}
		threads = append(threads, &thread)
	}
	return threads, nil
}
