package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var htmlTagPattern = regexp.MustCompile(`<[^<]+?>`)

// decodeBody extracts the plain-text body from a message payload.
// Multipart messages concatenate their text parts; text/html parts are
// crudely stripped of tags, which is good enough for summarisation.
func decodeBody(payload *apiPart) string {
	var body strings.Builder
	collectText(payload, &body)
	return strings.TrimSpace(body.String())
}

func collectText(part *apiPart, body *strings.Builder) {
	if len(part.Parts) > 0 {
		for i := range part.Parts {
			collectText(&part.Parts[i], body)
		}
		return
	}

	switch part.MimeType {
	case "text/plain":
		body.WriteString(decodeData(part.Body.Data))
	case "text/html":
		body.WriteString(htmlTagPattern.ReplaceAllString(decodeData(part.Body.Data), ""))
	}
}

// decodeData decodes the base64url body data, tolerating both padded
// and unpadded forms.
func decodeData(data string) string {
	if data == "" {
		return ""
	}
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
