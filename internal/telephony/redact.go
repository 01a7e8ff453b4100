package telephony

import (
	"net/url"
	"regexp"
)

// redacted matches the mask url.URL.Redacted uses; it needs no escaping in userinfo.
const redacted = "xxxxx"

var userinfoPattern = regexp.MustCompile(`//[^/@]*@`)

// RedactURL masks the whole userinfo segment of raw, user and password alike.
// Strings that do not parse as URLs are scrubbed with a pattern match instead.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return userinfoPattern.ReplaceAllString(raw, "//"+redacted+":"+redacted+"@")
	}
	if u.User == nil {
		return raw
	}
	u.User = url.UserPassword(redacted, redacted)
	return u.String()
}
