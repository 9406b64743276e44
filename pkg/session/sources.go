package session

import (
	"context"
	"strings"

	"github.com/oakwood-commons/queryline/internal/suggest"
	"github.com/oakwood-commons/queryline/internal/token"
)

// FieldSource suggests field keys from a field set, filtered by a
// case-insensitive substring match on key and label and paginated by
// Offset/Limit.
func FieldSource(fields *token.FieldSet) suggest.Source {
	return suggest.SourceFuncs{
		SuggestFn: func(_ context.Context, req suggest.Request) (suggest.Result, error) {
			return pageFields(fields, req), nil
		},
		LoadMoreFn: func(_ context.Context, req suggest.Request) (suggest.Result, error) {
			return pageFields(fields, req), nil
		},
	}
}

// ValueSource suggests declared enum values for the requested field,
// filtered and paginated like FieldSource. Fields without declared values
// yield an empty result.
func ValueSource(fields *token.FieldSet) suggest.Source {
	return suggest.SourceFuncs{
		SuggestFn: func(_ context.Context, req suggest.Request) (suggest.Result, error) {
			return pageValues(fields, req), nil
		},
		LoadMoreFn: func(_ context.Context, req suggest.Request) (suggest.Result, error) {
			return pageValues(fields, req), nil
		},
	}
}

func pageFields(fields *token.FieldSet, req suggest.Request) suggest.Result {
	if req.Kind == suggest.KindValue {
		return pageValues(fields, req)
	}
	var matched []suggest.Item
	q := strings.ToLower(req.Query)
	for _, key := range fields.Keys() {
		def, _ := fields.Lookup(key)
		if q != "" && !strings.Contains(strings.ToLower(key), q) &&
			!strings.Contains(strings.ToLower(def.Label), q) {
			continue
		}
		matched = append(matched, suggest.Item{
			Text:   key,
			Label:  def.Label,
			Detail: strings.Join(def.Operators, ", "),
			Icon:   def.Icon,
		})
	}
	return paginate(matched, req.Offset, req.Limit)
}

func pageValues(fields *token.FieldSet, req suggest.Request) suggest.Result {
	def, ok := fields.Lookup(req.FieldKey)
	if !ok {
		return suggest.Result{}
	}
	var matched []suggest.Item
	q := strings.ToLower(req.Query)
	for _, v := range def.Values {
		if q != "" && !strings.Contains(strings.ToLower(v), q) {
			continue
		}
		matched = append(matched, suggest.Item{Text: v})
	}
	return paginate(matched, req.Offset, req.Limit)
}

func paginate(items []suggest.Item, offset, limit int) suggest.Result {
	if offset >= len(items) {
		return suggest.Result{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		return suggest.Result{Items: items[:limit], HasMore: true}
	}
	return suggest.Result{Items: items}
}
