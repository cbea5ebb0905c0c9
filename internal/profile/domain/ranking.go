package domain

import (
	"cmp"
	"slices"
)

// RankBestSellers пересчитывает рейтинг по полной карте продаж:
// по убыванию количества, при равенстве по productID по возрастанию, не более limit элементов.
func RankBestSellers(counts map[string]int64, limit int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}

	slices.SortFunc(ids, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids
}
