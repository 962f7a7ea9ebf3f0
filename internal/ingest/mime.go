package ingest

import (
	"encoding/base64"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"regexp"
	"strings"
)

// bodyPart is one un-visited MIME part on the traversal work-stack.
type bodyPart struct {
	contentType string
	encoding    string
	body        io.Reader
}

// extractBody walks the MIME tree with an explicit work-stack and returns
// the concatenated text/plain parts. When no plain-text part exists the
// first text/html part is stripped to text instead.
func extractBody(msg *mail.Message) string {
	stack := []bodyPart{{
		contentType: msg.Header.Get("Content-Type"),
		encoding:    msg.Header.Get("Content-Transfer-Encoding"),
		body:        msg.Body,
	}}

	var plain, htmlBody strings.Builder
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		mediaType, params, err := mime.ParseMediaType(part.contentType)
		if err != nil {
			mediaType = "text/plain"
		}

		switch {
		case strings.HasPrefix(mediaType, "multipart/"):
			boundary, ok := params["boundary"]
			if !ok {
				continue
			}
			children := readChildren(part.body, boundary)
			// Push in reverse so the first child is processed first.
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, children[i])
			}
		case mediaType == "text/plain":
			data, err := io.ReadAll(decodeTransfer(part.body, part.encoding))
			if err == nil {
				plain.Write(data)
				plain.WriteString("\n")
			}
		case mediaType == "text/html":
			if htmlBody.Len() > 0 {
				continue
			}
			data, err := io.ReadAll(decodeTransfer(part.body, part.encoding))
			if err == nil {
				htmlBody.Write(data)
			}
		}
		// Attachments and other media are skipped.
	}

	if plain.Len() > 0 {
		return plain.String()
	}
	return htmlToText(htmlBody.String())
}

// readChildren drains one multipart level into memory. Parts must be read
// before the next NextPart call invalidates them, hence the eager copy.
func readChildren(r io.Reader, boundary string) []bodyPart {
	var children []bodyPart
	mr := multipart.NewReader(r, boundary)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		data, err := io.ReadAll(p)
		if err != nil {
			continue
		}
		children = append(children, bodyPart{
			contentType: p.Header.Get("Content-Type"),
			encoding:    p.Header.Get("Content-Transfer-Encoding"),
			body:        strings.NewReader(string(data)),
		})
	}
	return children
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

var (
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe  = regexp.MustCompile(`[ \t]+`)
	blankRe  = regexp.MustCompile(`\n{3,}`)
)

// htmlToText strips markup, scripts and styles and unescapes entities.
func htmlToText(s string) string {
	if s == "" {
		return ""
	}
	s = scriptRe.ReplaceAllString(s, " ")
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n").Replace(s)
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	s = blankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// decodeHeaderWord decodes RFC 2047 encoded words in a header value.
func decodeHeaderWord(value string) string {
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// headerAddresses parses an address-list header into bare addresses.
func headerAddresses(h mail.Header, key string) []string {
	list, err := h.AddressList(key)
	if err != nil {
		raw := h.Get(key)
		if raw == "" {
			return nil
		}
		return []string{strings.TrimSpace(raw)}
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, strings.ToLower(a.Address))
	}
	return out
}

// messageIDOf strips the angle brackets of a Message-Id style header.
func messageIDOf(h mail.Header, key string) string {
	return strings.Trim(strings.TrimSpace(h.Get(key)), "<>")
}

// referencesOf splits a References header into individual message ids.
func referencesOf(h mail.Header) []string {
	raw := h.Get("References")
	if raw == "" {
		return nil
	}
	var refs []string
	for _, field := range strings.Fields(raw) {
		if id := strings.Trim(field, "<>"); id != "" {
			refs = append(refs, id)
		}
	}
	return refs
}
