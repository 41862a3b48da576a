// internal/workers/data-access/search-scholarships/queries/registry.go
package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type QueryResult struct {
	Data      []map[string]interface{}
	TotalHits int64
	MaxScore  float64
	Took      int64
}

func Execute(ctx context.Context, esClient *elasticsearch.Client, input map[string]interface{}) (*QueryResult, error) {
	sq := SearchQuery{
		Index:      input["indexName"].(string),
		QueryType:  input["queryType"].(string),
		Pagination: struct{ From, Size int }{0, 20},
	}
	if filters, ok := input["filters"].(map[string]interface{}); ok {
		sq.Filters = filters
	} else {
		sq.Filters = map[string]interface{}{}
	}

	if scholarshipID, ok := input["scholarshipId"].(string); ok {
		sq.ScholarshipID = scholarshipID
	}
	if pagination, ok := input["pagination"].(map[string]interface{}); ok {
		if from, exists := pagination["from"].(float64); exists {
			sq.Pagination.From = int(from)
		}
		if size, exists := pagination["size"].(float64); exists {
			sq.Pagination.Size = int(size)
			if sq.Pagination.Size > 100 {
				sq.Pagination.Size = 100
			}
			if sq.Pagination.Size < 1 {
				sq.Pagination.Size = 20
			}
		}
	}

	req, err := BuildQuery(sq)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	hits := r["hits"].(map[string]interface{})
	total := hits["total"].(map[string]interface{})["value"].(float64)
	maxScore := 0.0
	if ms, ok := hits["max_score"].(float64); ok {
		maxScore = ms
	}

	var data []map[string]interface{}
	for _, hit := range hits["hits"].([]interface{}) {
		source := hit.(map[string]interface{})["_source"].(map[string]interface{})
		data = append(data, source)
	}

	return &QueryResult{
		Data:      data,
		TotalHits: int64(total),
		MaxScore:  maxScore,
		Took:      time.Since(start).Milliseconds(),
	}, nil
}
