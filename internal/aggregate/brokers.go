package aggregate

import (
	"sort"
	"strings"

	"github.com/ignite/tradeintel/internal/domain"
)

// BrokerCount is one customs broker's share of an importer's declarations.
type BrokerCount struct {
	ID    string
	Count int
}

// RankBrokers tallies non-empty broker identifiers and orders them by count,
// descending. Ties keep first-encounter order.
func RankBrokers(records []domain.ImportRecord) []BrokerCount {
	index := make(map[string]int)
	var ranked []BrokerCount
	for _, r := range records {
		id := strings.TrimSpace(r.BrokerID)
		if id == "" {
			continue
		}
		if i, ok := index[id]; ok {
			ranked[i].Count++
			continue
		}
		index[id] = len(ranked)
		ranked = append(ranked, BrokerCount{ID: id, Count: 1})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}
