// internal/workers/reporting/search-orders/query.go
package searchorders

import "strings"

// buildQuery turns the filters into a bool query; every clause is a
// non-scoring filter so results come back newest first.
func buildQuery(input *Input, from, size int) map[string]interface{} {
	filters := []interface{}{
		term("franchiseId", input.FranchiseID),
	}
	if input.LocationID != "" {
		filters = append(filters, term("locationId", input.LocationID))
	}
	if prefix := strings.ToUpper(strings.TrimSpace(input.OrderNumberPrefix)); prefix != "" {
		filters = append(filters, map[string]interface{}{
			"prefix": map[string]interface{}{"orderNumber": prefix},
		})
	}
	if phone := strings.TrimSpace(input.CustomerPhone); phone != "" {
		filters = append(filters, term("customerPhone", phone))
	}
	if input.PaymentMethod != "" {
		filters = append(filters, term("paymentMethod", input.PaymentMethod))
	}

	return map[string]interface{}{
		"from":             from,
		"size":             size,
		"track_total_hits": true,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"settledAt": map[string]interface{}{"order": "desc"}},
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{
		"term": map[string]interface{}{field: value},
	}
}
