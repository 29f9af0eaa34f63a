package analyzer

import "strings"

type semanticBucket struct {
	score   int
	phrases []string
}

// Most distinctive signal first. The first bucket with a match wins.
var semanticBuckets = []semanticBucket{
	{90, []string{
		"几乎完全相同", "基本一致", "高度相似", "非常相似",
		"nearly identical", "almost identical", "essentially the same", "highly similar", "very similar",
	}},
	{75, []string{
		"相当相似", "比较相似", "明显相似", "较为相似",
		"quite similar", "fairly similar", "noticeably similar", "rather similar",
	}},
	{55, []string{
		"有一定相似", "部分相似", "某些方面相似", "一些相似",
		"somewhat similar", "partially similar", "similar in some respects", "some similarities",
	}},
	{30, []string{
		"差异较大", "不太相似", "明显不同", "差别明显",
		"considerably different", "not very similar", "clearly different", "quite different",
	}},
	{10, []string{
		"完全不同", "截然不同", "毫无相似", "差异巨大",
		"completely different", "entirely different", "no similarity", "nothing in common",
	}},
}

type phraseHit struct {
	bucket     int
	start, end int
}

// SemanticClassifier maps qualitative similarity wording to a bucket score
type SemanticClassifier struct {
	buckets []semanticBucket
}

func NewSemanticClassifier() *SemanticClassifier {
	return &SemanticClassifier{buckets: semanticBuckets}
}

// Classify returns the bucket score of the first matching bucket.
// An occurrence lying inside a longer matched phrase is ignored,
// so "not very similar" does not count as "very similar".
func (c *SemanticClassifier) Classify(narrative string) (int, bool) {
	text := strings.ToLower(narrative)

	var hits []phraseHit
	for i, bucket := range c.buckets {
		for _, phrase := range bucket.phrases {
			hits = append(hits, occurrences(text, strings.ToLower(phrase), i)...)
		}
	}

	best := -1
	for _, hit := range hits {
		if containedInLonger(hit, hits) {
			continue
		}
		if best == -1 || hit.bucket < best {
			best = hit.bucket
		}
	}
	if best == -1 {
		return 0, false
	}
	return c.buckets[best].score, true
}

func occurrences(text, phrase string, bucket int) []phraseHit {
	var hits []phraseHit
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], phrase)
		if idx < 0 {
			break
		}
		start := offset + idx
		hits = append(hits, phraseHit{bucket: bucket, start: start, end: start + len(phrase)})
		offset = start + 1
	}
	return hits
}

func containedInLonger(hit phraseHit, hits []phraseHit) bool {
	for _, other := range hits {
		if other.end-other.start > hit.end-hit.start && other.start <= hit.start && other.end >= hit.end {
			return true
		}
	}
	return false
}
