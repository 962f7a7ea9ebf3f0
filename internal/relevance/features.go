// Package relevance learns a per-user weighting of result features from
// explicit validate/reject feedback.
package relevance

import (
	"math"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/textutil"
	"gonum.org/v1/gonum/floats"
)

// Extractor computes the five relevance features for an (email, query)
// pair. Every feature lies in [0,1].
type Extractor struct{}

// Features returns the feature map keyed by core.FeatureNames.
func (Extractor) Features(query string, names []string, email *core.Email, siblingCount int) map[string]float64 {
	full := email.Summary + " " + email.Subject + " " + email.Body
	return map[string]float64{
		core.FeatureTextualSimilarity: tfidfCosine(query, full),
		core.FeatureTermOverlap:       termOverlap(query, email.RelevantTerms),
		core.FeatureSubjectSimilarity: tfidfCosine(query, email.Subject),
		core.FeatureThreadSize:        math.Min(float64(siblingCount)/10.0, 1.0),
		core.FeatureNameMatch:         nameMatch(names, email),
	}
}

// tfidfCosine is the cosine similarity of the TF-IDF vectors of two texts,
// with the two texts as the corpus and smoothed document frequencies.
func tfidfCosine(a, b string) float64 {
	ta := textutil.Tokenize(a)
	tb := textutil.Tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	tfa := termFreq(ta)
	tfb := termFreq(tb)

	vocab := make([]string, 0, len(tfa)+len(tfb))
	for t := range tfa {
		vocab = append(vocab, t)
	}
	for t := range tfb {
		if _, seen := tfa[t]; !seen {
			vocab = append(vocab, t)
		}
	}

	va := make([]float64, len(vocab))
	vb := make([]float64, len(vocab))
	for i, term := range vocab {
		df := 0.0
		if tfa[term] > 0 {
			df++
		}
		if tfb[term] > 0 {
			df++
		}
		idf := math.Log(3.0/(1.0+df)) + 1.0
		va[i] = float64(tfa[term]) * idf
		vb[i] = float64(tfb[term]) * idf
	}

	na := floats.Norm(va, 2)
	nb := floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(va, vb) / (na * nb)
}

func termFreq(tokens []string) map[string]int {
	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

// termOverlap is the fraction of query terms present in the email's
// relevant-term set.
func termOverlap(query string, relevantTerms map[string]core.RelevantTerm) float64 {
	tokens := textutil.ContentTokens(query)
	if len(tokens) == 0 || len(relevantTerms) == 0 {
		return 0
	}
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[t] = struct{}{}
	}
	matched := 0
	for t := range unique {
		if _, ok := relevantTerms[t]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(unique))
}

// nameMatch is the best fuzzy partial-match ratio between any extracted
// query name and the email's from/to fields, 0 when no names were
// extracted.
func nameMatch(names []string, email *core.Email) float64 {
	if len(names) == 0 {
		return 0
	}
	fields := make([]string, 0, len(email.To)+1)
	if email.From != "" {
		fields = append(fields, email.From)
	}
	fields = append(fields, email.To...)

	best := 0.0
	for _, name := range names {
		folded := strings.ToLower(textutil.FoldAccents(name))
		if folded == "" {
			continue
		}
		for _, field := range fields {
			if ratio := partialRatio(folded, strings.ToLower(textutil.FoldAccents(field))); ratio > best {
				best = ratio
			}
		}
	}
	return best
}

// partialRatio scores how well the name matches anywhere inside the field:
// 1.0 for a substring hit, otherwise the best Levenshtein ratio against any
// single token of the field.
func partialRatio(name, field string) float64 {
	if name == "" || field == "" {
		return 0
	}
	if strings.Contains(field, name) {
		return 1.0
	}
	best := 0.0
	for _, token := range textutil.Tokenize(field) {
		dist := fuzzy.LevenshteinDistance(name, token)
		longest := len([]rune(name))
		if l := len([]rune(token)); l > longest {
			longest = l
		}
		if longest == 0 {
			continue
		}
		if ratio := 1.0 - float64(dist)/float64(longest); ratio > best {
			best = ratio
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
