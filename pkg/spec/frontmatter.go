package spec

import "strings"

const frontMatterDelim = "---\n"

// ExtractFrontMatter splits a component source into its template body and the
// raw metadata block. The block starts with a "---" line at the very top and
// ends at the next "---" line; an unterminated block swallows the whole source.
func ExtractFrontMatter(source string) (body string, meta []byte, found bool) {
	source = strings.ReplaceAll(source, "\r\n", "\n")
	if !strings.HasPrefix(source, frontMatterDelim) {
		return source, nil, false
	}

	rest := source[len(frontMatterDelim):]
	// The closing delimiter may directly follow the opening one.
	if strings.HasPrefix(rest, frontMatterDelim) {
		return rest[len(frontMatterDelim):], nil, true
	}

	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end == -1 {
		if strings.HasSuffix(rest, "\n---") {
			return "", []byte(strings.TrimSuffix(rest, "\n---")), true
		}
		return "", []byte(rest), true
	}
	return rest[end+1+len(frontMatterDelim):], []byte(rest[:end]), true
}
