package retrieval

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/poiesic/sift/core"
)

const (
	localVectorWeight = 0.6
	localBM25Weight   = 0.4

	webRecencyWeight   = 0.3
	webAuthorityWeight = 0.3
	webRelevanceWeight = 0.4

	verbatimBoost = 0.3
)

// Authoritative domains score highest regardless of TLD
var authoritativeDomains = []string{
	"wikipedia.org",
	"edu",
	"gov",
	"nature.com",
	"science.org",
	"arxiv.org",
	"ieee.org",
	"acm.org",
}

// rerankLocal reorders local evidence by blending normalized vector
// similarity with BM25 lexical scores. Evidence containing every query
// word verbatim gets an extra boost.
func rerankLocal(query string, items []core.LocalEvidence) []core.LocalEvidence {
	if len(items) == 0 {
		return items
	}

	texts := make([]string, len(items))
	raw := make([]float64, len(items))
	for i, item := range items {
		texts[i] = item.Text
		raw[i] = item.Score
	}

	bm25 := computeBM25Scores(query, texts)
	vector := normalizeScores(raw)

	for i := range items {
		score := localVectorWeight*vector[i] + localBM25Weight*bm25[i]
		if containsAllQueryWords(items[i].Text, query) {
			score += verbatimBoost
		}
		items[i].Score = score
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}

// rerankWeb reorders web evidence by blending recency, source authority,
// and normalized provider relevance.
func rerankWeb(items []core.WebEvidence, now time.Time) []core.WebEvidence {
	if len(items) == 0 {
		return items
	}

	raw := make([]float64, len(items))
	for i, item := range items {
		raw[i] = item.Score
	}
	relevance := normalizeScores(raw)

	for i := range items {
		score := webRecencyWeight*recencyScore(items[i].Time, now) +
			webAuthorityWeight*authorityScore(items[i].URL) +
			webRelevanceWeight*relevance[i]
		items[i].Score = score
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
	return items
}

// computeBM25Scores calculates simplified BM25 scores for each document
// against the query, normalized to [0, 1] by the maximum score.
func computeBM25Scores(query string, docs []string) []float64 {
	queryTerms := bm25Tokenize(query)
	scores := make([]float64, len(docs))
	if len(queryTerms) == 0 {
		return scores
	}

	// Document frequency per query term over the candidate set
	docFreqs := make(map[string]int)
	docTerms := make([][]string, len(docs))
	for i, doc := range docs {
		docTerms[i] = bm25Tokenize(doc)
		seen := make(map[string]bool, len(docTerms[i]))
		for _, term := range docTerms[i] {
			seen[term] = true
		}
		for _, term := range queryTerms {
			if seen[term] {
				docFreqs[term]++
			}
		}
	}

	const k1, b = 1.5, 0.75

	var totalLen float64
	for _, doc := range docs {
		totalLen += float64(len(doc))
	}
	avgDocLen := totalLen / float64(len(docs))
	if avgDocLen < 1 {
		avgDocLen = 1
	}

	for i := range docs {
		docLen := float64(len(docs[i]))
		counts := make(map[string]int, len(docTerms[i]))
		for _, term := range docTerms[i] {
			counts[term]++
		}

		var score float64
		for _, term := range queryTerms {
			tf := float64(counts[term])
			if tf == 0 {
				continue
			}
			df := float64(docFreqs[term])
			if df == 0 {
				df = 1
			}
			idf := (float64(len(docs)) - df + 0.5) / (df + 0.5)
			if idf < 0 {
				idf = 0
			}
			score += idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*(docLen/avgDocLen)))
		}
		scores[i] = score
	}

	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}
	return scores
}

// normalizeScores min-max normalizes scores to [0, 1].
// A flat score distribution normalizes to all ones.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}
	for i, s := range scores {
		normalized[i] = (s - minScore) / (maxScore - minScore)
	}
	return normalized
}

// recencyScore maps a publication timestamp to [0, 1]. Results within
// 30 days score 1.0, decaying linearly to 0.1 at one year. Missing or
// unparsable timestamps get a neutral 0.5.
func recencyScore(published string, now time.Time) float64 {
	if published == "" {
		return 0.5
	}

	normalized := strings.Replace(published, "Z", "+00:00", 1)
	pubTime, err := parseISOTime(normalized)
	if err != nil {
		return 0.5
	}

	days := now.UTC().Sub(pubTime.UTC()).Hours() / 24
	var score float64
	switch {
	case days <= 30:
		score = 1.0
	case days <= 365:
		score = 1.0 - (days-30)/365*0.9
	default:
		score = 0.1
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// parseISOTime parses common ISO 8601 layouts.
func parseISOTime(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// authorityScore maps a result URL to a source credibility score in [0, 1].
func authorityScore(rawURL string) float64 {
	domain := hostOf(rawURL)
	if domain == "" {
		return 0.5
	}

	for _, auth := range authoritativeDomains {
		if domain == auth || strings.HasSuffix(domain, "."+auth) {
			return 1.0
		}
	}

	switch {
	case strings.HasSuffix(domain, ".edu"), strings.HasSuffix(domain, ".gov"):
		return 0.9
	case strings.HasSuffix(domain, ".org"):
		return 0.7
	case strings.HasSuffix(domain, ".com"), strings.HasSuffix(domain, ".net"):
		return 0.6
	default:
		return 0.5
	}
}

// hostOf extracts the lowercase host from a URL without erroring on
// malformed input.
func hostOf(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, "@"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ToLower(s)
}

// bm25Tokenize lowercases text, strips punctuation, and keeps words
// longer than one character.
func bm25Tokenize(text string) []string {
	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}

	var terms []string
	for _, word := range strings.Fields(builder.String()) {
		if len(word) > 1 {
			terms = append(terms, word)
		}
	}
	return terms
}
