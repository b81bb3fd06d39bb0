package model

import (
	"encoding/json"
	"strings"
)

// Topic is a recognized news topic.
type Topic string

const (
	TopicGeneral  Topic = "General"
	TopicEconomy  Topic = "Economy"
	TopicPolitics Topic = "Politics"
	TopicTech     Topic = "Tech"
	TopicMilitary Topic = "Military"
)

// ValidTopics lists topics in display order.
var ValidTopics = []Topic{TopicGeneral, TopicEconomy, TopicPolitics, TopicTech, TopicMilitary}

// ParseTopic returns the topic for s, or TopicGeneral when s is not recognized.
func ParseTopic(s string) Topic {
	for _, t := range ValidTopics {
		if string(t) == s {
			return t
		}
	}
	return TopicGeneral
}

// TimeFilter is a recognized news time window.
type TimeFilter string

const (
	TimeFilter24h TimeFilter = "24h"
	TimeFilter7d  TimeFilter = "7d"
)

// ParseTimeFilter returns the filter for s, or TimeFilter24h when s is not recognized.
func ParseTimeFilter(s string) TimeFilter {
	switch TimeFilter(s) {
	case TimeFilter7d:
		return TimeFilter7d
	default:
		return TimeFilter24h
	}
}

// Query identifies one news request independently of who asked.
type Query struct {
	Country    string     `json:"country"`
	TimeFilter TimeFilter `json:"time_filter"`
	Topic      Topic      `json:"topic"`
}

// NewQuery builds a Query, normalizing unrecognized topic and time filter values.
func NewQuery(country, timeFilter, topic string) Query {
	return Query{
		Country:    strings.TrimSpace(country),
		TimeFilter: ParseTimeFilter(timeFilter),
		Topic:      ParseTopic(topic),
	}
}

// CacheKey returns the response cache fingerprint: country_timefilter_topic.
func (q Query) CacheKey() string {
	return q.Country + "_" + string(q.TimeFilter) + "_" + string(q.Topic)
}

// NewsItem is one headline returned by the completion upstream.
// The wire name of the title is "titre"; "title" is accepted on input.
type NewsItem struct {
	Title     string `json:"titre"`
	Date      string `json:"date"`
	SourceURL string `json:"source_url"`
}

// UnmarshalJSON accepts both "titre" and "title".
func (n *NewsItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Titre     string `json:"titre"`
		Title     string `json:"title"`
		Date      string `json:"date"`
		SourceURL string `json:"source_url"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	n.Title = raw.Titre
	if n.Title == "" {
		n.Title = raw.Title
	}
	n.Date = raw.Date
	n.SourceURL = raw.SourceURL
	return nil
}

// CountryStats is the best-effort enrichment from the country directory.
type CountryStats struct {
	Population int64  `json:"population"`
	Region     string `json:"region"`
	Subregion  string `json:"subregion"`
	Capital    string `json:"capital"`
	FlagEmoji  string `json:"flag_emoji"`
}

// NewsPayload is the combined result stored in the response cache.
type NewsPayload struct {
	News   []NewsItem    `json:"news"`
	Trends []string      `json:"trends"`
	Stats  *CountryStats `json:"stats"`
}
