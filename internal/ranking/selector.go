package ranking

import (
	"sort"

	"golang-news-slate/internal/entity"
)

// Selector picks the best articles of each category.
type Selector struct {
	QualityGate int
	PerCategory int
}

// NewSelector returns a selector with the given gate and picks per category.
func NewSelector(qualityGate, perCategory int) Selector {
	return Selector{QualityGate: qualityGate, PerCategory: perCategory}
}

// Select returns up to PerCategory articles per category ranked 1..n. When fewer than
// PerCategory articles reach the quality gate, the top of the unfiltered list is used
// instead so the slate still fills. Ties keep input order.
func (s Selector) Select(scored []entity.ScoredArticle) []entity.SelectedArticle {
	var order []entity.CategoryID
	groups := map[entity.CategoryID][]entity.ScoredArticle{}
	for _, a := range scored {
		if _, seen := groups[a.CategoryID]; !seen {
			order = append(order, a.CategoryID)
		}
		groups[a.CategoryID] = append(groups[a.CategoryID], a)
	}

	var out []entity.SelectedArticle
	for _, id := range order {
		out = append(out, s.selectCategory(groups[id])...)
	}
	return out
}

func (s Selector) selectCategory(articles []entity.ScoredArticle) []entity.SelectedArticle {
	ranked := make([]entity.ScoredArticle, len(articles))
	copy(ranked, articles)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})

	var qualified []entity.ScoredArticle
	for _, a := range ranked {
		if a.Total >= s.QualityGate {
			qualified = append(qualified, a)
		}
	}

	pool := ranked
	if len(qualified) >= s.PerCategory {
		pool = qualified
	}
	if len(pool) > s.PerCategory {
		pool = pool[:s.PerCategory]
	}

	out := make([]entity.SelectedArticle, len(pool))
	for i, a := range pool {
		out[i] = entity.SelectedArticle{ScoredArticle: a, Rank: i + 1}
	}
	return out
}
