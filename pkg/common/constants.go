package common

// Redis key templates. The configured key prefix is prepended at runtime.
const (
	RedisKeyPostedGuard = "slate:posted:%s"    // post id
	RedisKeyBackupQuota = "slate:quota:%s:%s"  // provider, civic date
	RedisKeyRecentTexts = "slate:recent-texts" // list, newest first
)

// Persisted log tabs.
const (
	TabCandidatesPrefix = "candidates_"
	TabRankedPrefix     = "ranked_"
	TabPosted           = "posted"
	TabPerformance      = "performance"
	TabErrors           = "errors"
	TabInsights         = "insights"
)
