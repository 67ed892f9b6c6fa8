package pipeline

import (
	"reflect"

	"invoicemerge/internal"
)

// ExtraFieldNames returns the summary fields that have no same-named
// counterpart on the line-item record, in summary declaration order. The
// difference is computed by name so that reordering summary fields never
// changes which columns are extras.
func ExtraFieldNames() []string {
	base := map[string]struct{}{}
	lt := reflect.TypeOf(internal.LineItemRecord{})
	for i := 0; i < lt.NumField(); i++ {
		base[lt.Field(i).Name] = struct{}{}
	}

	st := reflect.TypeOf(internal.DocumentSummaryRecord{})
	out := make([]string, 0, st.NumField())
	for i := 0; i < st.NumField(); i++ {
		name := st.Field(i).Name
		if _, ok := base[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// ExtraFieldDefault returns the zero value for a named extra field, used for
// every row that is not a document's designated last line item.
func ExtraFieldDefault(name string) any {
	field, ok := reflect.TypeOf(internal.DocumentSummaryRecord{}).FieldByName(name)
	if !ok {
		return nil
	}
	return reflect.Zero(field.Type).Interface()
}

// MergeRecords attaches each document's summary extras to the last line item
// of that document. The input order is preserved exactly; no rows are added,
// dropped, or deduplicated. Documents are visited in order of first appearance
// among the summaries; when several summaries share an ID the last one wins.
// A summary whose document contributed no line items is discarded outright.
func MergeRecords(items []internal.LineItemRecord, summaries []internal.DocumentSummaryRecord) []internal.MergedRecord {
	out := make([]internal.MergedRecord, len(items))
	for i, item := range items {
		out[i] = internal.MergedRecord{LineItemRecord: item}
	}

	names := ExtraFieldNames()

	order := make([]string, 0, len(summaries))
	byID := make(map[string]internal.DocumentSummaryRecord, len(summaries))
	for _, s := range summaries {
		if _, seen := byID[s.SourceDocumentID]; !seen {
			order = append(order, s.SourceDocumentID)
		}
		byID[s.SourceDocumentID] = s
	}

	for _, id := range order {
		last := -1
		for i := range out {
			if out[i].SourceDocumentID == id {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		out[last].Extras = extraValues(byID[id], names)
	}

	return out
}

func extraValues(summary internal.DocumentSummaryRecord, names []string) map[string]any {
	v := reflect.ValueOf(summary)
	out := make(map[string]any, len(names))
	for _, name := range names {
		out[name] = v.FieldByName(name).Interface()
	}
	return out
}
