package ranking

import (
	"testing"

	"golang-news-slate/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(category entity.CategoryID, headline string, total int) entity.ScoredArticle {
	return entity.ScoredArticle{
		CandidateArticle: entity.CandidateArticle{Headline: headline, CategoryID: category},
		Total:            total,
	}
}

func headlines(sel []entity.SelectedArticle) []string {
	var out []string
	for _, s := range sel {
		out = append(out, s.Headline)
	}
	return out
}

func TestSelectTopThreeQualified(t *testing.T) {
	in := []entity.ScoredArticle{
		scored(entity.CategoryAISafety, "a", 88),
		scored(entity.CategoryAISafety, "b", 72),
		scored(entity.CategoryAISafety, "c", 81),
		scored(entity.CategoryAISafety, "d", 55),
		scored(entity.CategoryAISafety, "e", 64),
		scored(entity.CategoryAISafety, "f", 40),
	}
	sel := NewSelector(60, 3).Select(in)
	require.Len(t, sel, 3)
	assert.Equal(t, []string{"a", "c", "b"}, headlines(sel))
	for i, s := range sel {
		assert.Equal(t, i+1, s.Rank)
	}
}

func TestSelectFallsBackToUnfilteredWhenGateStarves(t *testing.T) {
	in := []entity.ScoredArticle{
		scored(entity.CategoryBusinessAI, "a", 45),
		scored(entity.CategoryBusinessAI, "b", 61),
		scored(entity.CategoryBusinessAI, "c", 50),
		scored(entity.CategoryBusinessAI, "d", 30),
	}
	sel := NewSelector(60, 3).Select(in)
	assert.Equal(t, []string{"b", "c", "a"}, headlines(sel))
}

func TestSelectKeepsInputOrderOnTies(t *testing.T) {
	in := []entity.ScoredArticle{
		scored(entity.CategoryAIResearch, "first", 70),
		scored(entity.CategoryAIResearch, "second", 70),
		scored(entity.CategoryAIResearch, "third", 70),
		scored(entity.CategoryAIResearch, "fourth", 70),
	}
	sel := NewSelector(60, 3).Select(in)
	assert.Equal(t, []string{"first", "second", "third"}, headlines(sel))
}

func TestSelectShortCategoryYieldsFewer(t *testing.T) {
	in := []entity.ScoredArticle{
		scored(entity.CategoryAISafety, "only", 20),
		scored(entity.CategoryBusinessAI, "x", 90),
	}
	sel := NewSelector(60, 3).Select(in)
	require.Len(t, sel, 2)
	assert.Equal(t, entity.CategoryAISafety, sel[0].CategoryID)
	assert.Equal(t, 1, sel[0].Rank)
	assert.Equal(t, 1, sel[1].Rank)

	assert.Empty(t, NewSelector(60, 3).Select(nil))
}
