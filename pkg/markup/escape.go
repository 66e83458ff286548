package markup

import "strings"

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", `"`, "&#34;")
)

// EscapeText re-escapes decoded text content for output.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// EscapeAttr re-escapes a decoded attribute value for a double-quoted attribute.
func EscapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
