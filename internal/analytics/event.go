package analytics

import "time"

const (
	TopicURLShortened = "url.shortened"
	TopicURLResolved  = "url.resolved"
)

// URLShortenedEvent is emitted after a shorten request succeeded.
type URLShortenedEvent struct {
	Account    string    `json:"account"`
	Code       string    `json:"code"`
	LongURL    string    `json:"longUrl"`
	UserToken  string    `json:"userToken"`
	Created    bool      `json:"created"`
	OccurredAt time.Time `json:"occurredAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
}

// URLResolvedEvent is emitted after a code was resolved and its hit counted.
type URLResolvedEvent struct {
	Account    string    `json:"account"`
	Code       string    `json:"code"`
	UserToken  string    `json:"userToken"`
	OccurredAt time.Time `json:"occurredAt"`
	ClientIP   string    `json:"clientIp"`
	UserAgent  string    `json:"userAgent"`
	Referrer   string    `json:"referrer"`
}
