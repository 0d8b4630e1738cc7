package gate

import (
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// asciiEncoding is what the C and POSIX locales use.
const asciiEncoding = "US-ASCII"

// DetectEncoding returns the character encoding of the active locale, as
// named by the first non-empty of LC_ALL, LC_CTYPE and LANG. The name is
// canonicalized with CanonicalEncoding. A locale without an explicit codeset
// yields "".
func DetectEncoding(getenv func(string) string) string {
	var locale string
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := getenv(key); v != "" {
			locale = v
			break
		}
	}
	return CanonicalEncoding(localeCodeset(locale))
}

// localeCodeset extracts the codeset from language[_territory][.codeset][@modifier].
func localeCodeset(locale string) string {
	if i := strings.IndexByte(locale, '@'); i >= 0 {
		locale = locale[:i]
	}
	if i := strings.IndexByte(locale, '.'); i >= 0 {
		return locale[i+1:]
	}
	switch locale {
	case "", "C", "POSIX":
		return asciiEncoding
	}
	// The default codeset of a bare language_territory depends on how the
	// libc locale was generated (glibc uses ISO-8859-1 for en_US), so it is
	// left unknown.
	return ""
}

// CanonicalEncoding maps an encoding label to its IANA preferred name, so
// "utf8", "UTF-8" and "csUTF8" compare equal. Unknown labels are returned
// unchanged.
func CanonicalEncoding(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return ""
	}
	enc, err := ianaindex.IANA.Encoding(label)
	switch {
	case err == nil && enc == nil:
		// Registered with IANA but not implemented by x/text.
		return label
	case err != nil:
		enc, err = htmlindex.Get(label)
		if err != nil {
			return label
		}
	}
	name, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return label
	}
	return name
}
