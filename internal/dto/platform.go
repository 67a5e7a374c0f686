package dto

import "time"

// PublishedPost is the platform's acknowledgement of a new post.
type PublishedPost struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// PostMetrics are the public counters of a post.
type PostMetrics struct {
	PostID      string `json:"post_id"`
	Likes       int    `json:"likes"`
	Reposts     int    `json:"reposts"`
	Replies     int    `json:"replies"`
	Quotes      int    `json:"quotes"`
	Impressions int    `json:"impressions"`
}

// XCreateTweetRequest is the body of POST /2/tweets.
type XCreateTweetRequest struct {
	Text string `json:"text"`
}

// XCreateTweetResponse is the reply of POST /2/tweets.
type XCreateTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// XTweetsResponse is the reply of GET /2/tweets and the user timeline.
type XTweetsResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			RetweetCount    int `json:"retweet_count"`
			ReplyCount      int `json:"reply_count"`
			LikeCount       int `json:"like_count"`
			QuoteCount      int `json:"quote_count"`
			ImpressionCount int `json:"impression_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Errors []XError `json:"errors"`
}

// XError is an API problem document.
type XError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Type   string `json:"type"`
	Status int    `json:"status"`
}
