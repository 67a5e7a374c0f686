package entity

// CategoryID identifies one of the fixed content categories.
type CategoryID string

const (
	CategoryBusinessAI CategoryID = "business-ai"
	CategoryAIResearch CategoryID = "ai-research"
	CategoryAISafety   CategoryID = "ai-safety"
)

// Category is a content vertical with its search and presentation settings.
type Category struct {
	ID          CategoryID
	DisplayName string
	// Description doubles as the natural-language query for the primary search provider.
	Description   string
	BackupQueries []string
	Keywords      []string
	Hashtags      []string
}

var categories = []Category{
	{
		ID:          CategoryBusinessAI,
		DisplayName: "Business AI",
		Description: "news about companies adopting, buying, funding or deploying artificial intelligence, " +
			"enterprise AI products, and the business impact of generative AI",
		BackupQueries: []string{
			`("artificial intelligence" OR "generative AI") AND (enterprise OR business OR company)`,
			`("AI adoption" OR "AI deployment" OR "AI investment") AND (CEO OR revenue OR productivity)`,
		},
		Keywords: []string{"enterprise", "adoption", "productivity", "automation", "revenue", "investment", "roi", "workforce", "startup", "funding"},
		Hashtags: []string{"#AI", "#EnterpriseAI", "#FutureOfWork"},
	},
	{
		ID:          CategoryAIResearch,
		DisplayName: "AI Research",
		Description: "new artificial intelligence research results, model releases, benchmarks and " +
			"breakthroughs from labs and universities",
		BackupQueries: []string{
			`("AI model" OR "language model" OR LLM) AND (research OR benchmark OR paper)`,
			`("machine learning" OR "deep learning") AND (breakthrough OR study OR release)`,
		},
		Keywords: []string{"model", "research", "benchmark", "paper", "llm", "training", "reasoning", "open source", "dataset", "agents"},
		Hashtags: []string{"#AIResearch", "#MachineLearning", "#LLM"},
	},
	{
		ID:          CategoryAISafety,
		DisplayName: "AI Safety",
		Description: "news about AI safety, alignment, regulation, governance, responsible AI and risks " +
			"of advanced artificial intelligence",
		BackupQueries: []string{
			`("AI safety" OR "AI alignment" OR "responsible AI") AND (risk OR policy OR research)`,
			`("AI regulation" OR "AI governance" OR "AI act") AND (government OR law OR compliance)`,
		},
		Keywords: []string{"safety", "alignment", "regulation", "governance", "risk", "ethics", "policy", "compliance", "trust", "oversight"},
		Hashtags: []string{"#AISafety", "#AIGovernance", "#ResponsibleAI"},
	},
}

// Categories returns the fixed category set in slate order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// CategoryByID looks up a category.
func CategoryByID(id CategoryID) (Category, bool) {
	for _, c := range categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}
