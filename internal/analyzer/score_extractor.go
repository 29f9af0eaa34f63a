package analyzer

import (
	"regexp"
	"sort"
	"strconv"
	"unicode/utf8"
)

// contextWindow is the number of runes kept on each side of a match
const contextWindow = 20

// ScoreCandidate is one number found by the pattern battery
type ScoreCandidate struct {
	Score       int
	Context     string
	PatternRank int
	Offset      int
}

// scorePattern captures the score in submatch 1. Patterns with fraction set
// accept a decimal and keep its integer part.
type scorePattern struct {
	name     string
	re       *regexp.Regexp
	fraction bool
}

// Patterns in priority order. The index in this slice is the rank.
var scorePatterns = []scorePattern{
	// qualifier followed by a percentage
	{"zh_qualifier_percent", regexp.MustCompile(`(?:相似度(?:为|是|达到)?|相似程度|匹配度|相似性)[：:\s]*(\d+)(?:\.\d+)?\s*[%％]`), true},
	{"en_qualifier_percent", regexp.MustCompile(`(?i)(?:similarity(?:\s+(?:level|score|rate|degree))?|resemblance|match(?:ing)?\s+(?:degree|rate|score))(?:\s+(?:is|of|reaches|at))?(?:\s+(?:about|around|approximately|roughly))?[：:\s]*(\d+)(?:\.\d+)?\s*[%％]`), true},
	// bare percentage
	{"bare_percent", regexp.MustCompile(`(\d+)\s*[%％]`), false},
	// score phrasing with an optional unit
	{"zh_score", regexp.MustCompile(`(?:评分|得分|分数)[：:\s]*(\d+)\s*(?:分|[%％])?`), false},
	{"en_score", regexp.MustCompile(`(?i)\b(?:score|rating|points)[：:\s]*(\d+)\s*(?:[%％]|points?\b|pts\b|/\s*100)?`), false},
	// similarity word, a short gap, then a bare integer
	{"loose", regexp.MustCompile(`(?i)(?:相似度|相似|匹配度|匹配|评分|得分|分数|similarity|similar|match|score)[^\d\n]{0,8}?(\d+)`), false},
}

var contextKeywords = regexp.MustCompile(`(?i)相似|匹配|similar|match|score`)

// ScoreExtractor finds an explicit similarity score in a narrative
type ScoreExtractor struct {
	patterns []scorePattern
}

func NewScoreExtractor() *ScoreExtractor {
	return &ScoreExtractor{patterns: scorePatterns}
}

// Extract returns the selected score, or false when the narrative states none
func (e *ScoreExtractor) Extract(narrative string) (int, bool) {
	candidates := e.Candidates(narrative)
	if len(candidates) == 0 {
		return 0, false
	}
	for _, c := range candidates {
		if contextKeywords.MatchString(c.Context) {
			return c.Score, true
		}
	}
	return candidates[0].Score, true
}

// Candidates returns every valid match ordered by rank, then offset
func (e *ScoreExtractor) Candidates(narrative string) []ScoreCandidate {
	var candidates []ScoreCandidate

	for rank, p := range e.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(narrative, -1) {
			start, end := loc[2], loc[3]
			if start < 0 {
				continue
			}
			if p.fraction {
				if isFractionTail(narrative, start) {
					continue
				}
			} else if isDecimalFragment(narrative, start, end) {
				continue
			}
			score, err := strconv.Atoi(narrative[start:end])
			if err != nil || score < 0 || score > 100 {
				continue
			}
			candidates = append(candidates, ScoreCandidate{
				Score:       score,
				Context:     contextAround(narrative, loc[0], loc[1]),
				PatternRank: rank,
				Offset:      start,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].PatternRank != candidates[j].PatternRank {
			return candidates[i].PatternRank < candidates[j].PatternRank
		}
		return candidates[i].Offset < candidates[j].Offset
	})
	return candidates
}

// isDecimalFragment reports whether text[start:end] is part of a number like 82.5
func isDecimalFragment(text string, start, end int) bool {
	if end+1 < len(text) && text[end] == '.' && isDigit(text[end+1]) {
		return true
	}
	return isFractionTail(text, start)
}

// isFractionTail reports whether the number at start follows a decimal point
func isFractionTail(text string, start int) bool {
	return start >= 2 && text[start-1] == '.' && isDigit(text[start-2])
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// contextAround returns the match widened by contextWindow runes on each side
func contextAround(text string, start, end int) string {
	from := start
	for i := 0; i < contextWindow && from > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for i := 0; i < contextWindow && to < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}
	return text[from:to]
}
