// internal/workers/data-access/search-scholarships/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// SearchQuery defines the structure of a scholarship search request.
type SearchQuery struct {
	Index         string
	QueryType     string
	Filters       map[string]interface{}
	ScholarshipID string
	Pagination    struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type and
// filters.
func BuildQuery(sq SearchQuery) (*esapi.SearchRequest, error) {
	if sq.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch sq.QueryType {
	case "scholarship_search":
		queryBody = buildScholarshipSearchQuery(sq)
	case "similar_scholarships":
		queryBody = buildSimilarScholarshipsQuery(sq)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, sq.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{sq.Index},
		Body:  strings.NewReader(string(body)),
		From:  &sq.Pagination.From,
		Size:  &sq.Pagination.Size,
	}

	return &req, nil
}

// buildScholarshipSearchQuery builds the candidate retrieval query. Profile
// facet filters mirror how criteria lists behave: a scholarship whose
// criteria does not restrict the facet still matches, so every facet filter
// is "value listed OR facet unrestricted".
func buildScholarshipSearchQuery(sq SearchQuery) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if keywords, ok := sq.Filters["keywords"].(string); ok && keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"name^3", "description^2", "provider"},
				"type":   "best_fields",
			},
		})
	}

	if provider, ok := sq.Filters["provider"].(string); ok && provider != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"provider": provider},
		})
	}

	if includeInactive, _ := sq.Filters["includeInactive"].(bool); !includeInactive {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": "active"},
		})
	}

	facetFields := []struct{ filterKey, esField string }{
		{"college", "eligible_colleges"},
		{"course", "eligible_courses"},
		{"province", "eligible_provinces"},
		{"stBracket", "eligible_st_brackets"},
	}
	for _, facet := range facetFields {
		if value, ok := sq.Filters[facet.filterKey].(string); ok && value != "" {
			filterClauses = append(filterClauses, listedOrUnrestricted(facet.esField, value))
		}
	}

	// A student GWA of g matches scholarships whose max_gwa bound admits it
	// (GWA scale: lower is better) or that set no bound at all.
	if gwa, ok := toFloat(sq.Filters["gwa"]); ok {
		filterClauses = append(filterClauses, boundSatisfiedOrAbsent("max_gwa", "gte", gwa))
	}
	if income, ok := toFloat(sq.Filters["annualFamilyIncome"]); ok {
		filterClauses = append(filterClauses, boundSatisfiedOrAbsent("max_income", "gte", income))
	}

	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	if sortBy, ok := sq.Filters["sortBy"].(string); ok {
		switch sortBy {
		case "slots_available":
			query["sort"] = []map[string]interface{}{{"slots_available": "desc"}}
		case "name":
			query["sort"] = []map[string]interface{}{{"name": "asc"}}
		}
	}

	return query
}

// buildSimilarScholarshipsQuery builds a "scholarships like this one" query.
func buildSimilarScholarshipsQuery(sq SearchQuery) map[string]interface{} {
	if sq.ScholarshipID == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"name", "description", "provider"},
				"like": []map[string]interface{}{
					{"_index": sq.Index, "_id": sq.ScholarshipID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}

func listedOrUnrestricted(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": []interface{}{
				map[string]interface{}{
					"term": map[string]interface{}{field: value},
				},
				map[string]interface{}{
					"bool": map[string]interface{}{
						"must_not": map[string]interface{}{
							"exists": map[string]interface{}{"field": field},
						},
					},
				},
			},
			"minimum_should_match": 1,
		},
	}
}

func boundSatisfiedOrAbsent(field, op string, value float64) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"should": []interface{}{
				map[string]interface{}{
					"range": map[string]interface{}{
						field: map[string]interface{}{op: value},
					},
				},
				map[string]interface{}{
					"bool": map[string]interface{}{
						"must_not": map[string]interface{}{
							"exists": map[string]interface{}{"field": field},
						},
					},
				},
			},
			"minimum_should_match": 1,
		},
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch tv := v.(type) {
	case float64:
		return tv, true
	case int:
		return float64(tv), true
	case int64:
		return float64(tv), true
	}
	return 0, false
}
