package xsearch

// searchRequest is the search API request body.
type searchRequest struct {
	Query   string `json:"query"`
	Limit   int    `json:"limit"`
	Section string `json:"section"`
}

// searchResponse represents the search API response structure.
type searchResponse struct {
	Results []Result `json:"results"`
}

type Result struct {
	TweetID      string  `json:"tweet_id"`
	Text         string  `json:"text"`
	CreationDate string  `json:"creation_date"`
	ExpandedURL  *string `json:"expanded_url"`
	User         User    `json:"user"`
}

type User struct {
	Username      string `json:"username"`
	FollowerCount int    `json:"follower_count"`
}
