package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxSearchResults = 3

const noSearchResults = "No prices found."

type SearchHit struct {
	Title string
	Body  string
	URL   string
}

type SearchResult struct {
	Hits    []SearchHit
	Summary string
	Err     error
}

// SearchService is a keyword web search over the DuckDuckGo Instant Answer API.
type SearchService struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewSearchService(baseURL string, timeout time.Duration) *SearchService {
	return &SearchService{baseURL: baseURL, client: &http.Client{}, timeout: timeout}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Name     string     `json:"Name"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// Search returns the top results for query. It never returns an error value:
// failures are reported in Err and in the Summary text.
func (s *SearchService) Search(ctx context.Context, query string) SearchResult {
	hits, err := s.search(ctx, query)
	if err != nil {
		return SearchResult{Err: err, Summary: "Search failed: " + err.Error()}
	}
	if len(hits) == 0 {
		return SearchResult{Summary: noSearchResults}
	}
	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		lines = append(lines, fmt.Sprintf("- %s: %s", h.Title, h.Body))
	}
	return SearchResult{Hits: hits, Summary: strings.Join(lines, "\n")}
}

func (s *SearchService) search(ctx context.Context, query string) ([]SearchHit, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	q := url.Values{
		"q":             {query},
		"format":        {"json"},
		"no_html":       {"1"},
		"skip_disambig": {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, data)
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return collectHits(parsed), nil
}

func collectHits(r ddgResponse) []SearchHit {
	var hits []SearchHit
	add := func(t ddgTopic) bool {
		if t.Text == "" {
			return false
		}
		hits = append(hits, topicHit(t))
		return len(hits) >= maxSearchResults
	}

	if r.AbstractText != "" {
		hits = append(hits, SearchHit{Title: r.Heading, Body: r.AbstractText, URL: r.AbstractURL})
	}
	for _, t := range r.Results {
		if len(hits) >= maxSearchResults || add(t) {
			return hits
		}
	}
	for _, t := range r.RelatedTopics {
		if len(hits) >= maxSearchResults {
			return hits
		}
		if len(t.Topics) > 0 {
			for _, sub := range t.Topics {
				if add(sub) {
					return hits
				}
			}
			continue
		}
		if add(t) {
			return hits
		}
	}
	return hits
}

// topicHit splits "Title - body" topic text; DuckDuckGo has no separate title.
func topicHit(t ddgTopic) SearchHit {
	title, body, found := strings.Cut(t.Text, " - ")
	if !found {
		title, body = t.Text, t.Text
		if r := []rune(title); len(r) > 60 {
			title = string(r[:60]) + "..."
		}
	}
	return SearchHit{Title: title, Body: body, URL: t.FirstURL}
}
