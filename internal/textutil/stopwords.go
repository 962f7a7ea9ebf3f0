package textutil

// Stopwords in Spanish and English; the corpus mixes both.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// Spanish
		"de", "la", "el", "en", "que", "los", "las", "un", "una", "unos",
		"unas", "con", "por", "para", "del", "al", "se", "su", "sus", "lo",
		"le", "les", "mi", "mis", "tu", "tus", "este", "esta", "estos",
		"estas", "ese", "esa", "esos", "esas", "como", "mas", "pero", "muy",
		"sin", "sobre", "entre", "hasta", "desde", "cuando", "donde", "hay",
		"ser", "es", "son", "fue", "estar", "esta", "estan", "hola",
		"gracias", "saludos", "adjunto", "favor",
		// English
		"the", "a", "an", "of", "to", "in", "on", "for", "and", "or", "is",
		"are", "was", "be", "this", "that", "with", "from", "as", "at", "by",
		"it", "its", "we", "you", "your", "our", "not", "but", "if", "so",
		"hi", "hello", "thanks", "regards", "please", "attached",
	} {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether a token carries no topical signal.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// ContentTokens tokenizes text and drops stopwords.
func ContentTokens(text string) []string {
	tokens := Tokenize(text)
	out := tokens[:0]
	for _, t := range tokens {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}
