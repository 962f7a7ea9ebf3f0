package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gonum.org/v1/gonum/floats"
)

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FoldAccents removes diacritical marks so that "revisión" and "revision"
// compare equal.
func FoldAccents(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		return s
	}
	return folded
}

var replyPrefixes = []string{"re:", "fwd:", "fw:", "rv:"}

// NormalizeSubject lowercases a subject, folds accents, strips any number of
// reply/forward prefixes and collapses runs of whitespace. Two emails of the
// same conversation normalize to the same string.
func NormalizeSubject(subject string) string {
	s := strings.ToLower(FoldAccents(subject))
	for {
		s = strings.TrimSpace(s)
		stripped := false
		for _, prefix := range replyPrefixes {
			if strings.HasPrefix(s, prefix) {
				s = s[len(prefix):]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits text into lowercase accent-folded word tokens. Single
// runes are dropped.
func Tokenize(text string) []string {
	folded := strings.ToLower(FoldAccents(text))
	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := tokens[:0]
	for _, t := range tokens {
		if utf8.RuneCountInString(t) > 1 {
			out = append(out, t)
		}
	}
	return out
}

// Cosine returns the cosine similarity of two vectors, or 0 when either has
// zero norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	fa := make([]float64, len(a))
	fb := make([]float64, len(b))
	for i := range a {
		fa[i] = float64(a[i])
		fb[i] = float64(b[i])
	}
	na := floats.Norm(fa, 2)
	nb := floats.Norm(fb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(fa, fb) / (na * nb)
}

// MeanVector returns the element-wise mean of the given vectors. Vectors of
// mismatched length are skipped.
func MeanVector(vectors [][]float32) []float32 {
	var sum []float64
	count := 0
	for _, v := range vectors {
		if len(v) == 0 {
			continue
		}
		if sum == nil {
			sum = make([]float64, len(v))
		}
		if len(v) != len(sum) {
			continue
		}
		fv := make([]float64, len(v))
		for i := range v {
			fv[i] = float64(v[i])
		}
		floats.Add(sum, fv)
		count++
	}
	if count == 0 {
		return nil
	}
	floats.Scale(1/float64(count), sum)
	out := make([]float32, len(sum))
	for i := range sum {
		out[i] = float32(sum[i])
	}
	return out
}

// SanitizeUTF8 drops invalid UTF-8 sequences from a string.
func SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				continue
			}
		}
		result = append(result, r)
	}
	return string(result)
}

// TruncateText truncates text to maxSize bytes on a valid UTF-8 boundary.
func TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}
	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}
