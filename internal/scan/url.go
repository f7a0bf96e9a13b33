package scan

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var dnsLabel = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// NormalizeURL validates a website URL and returns it in canonical
// form. A missing scheme defaults to https. Rejections return a
// *ValidationError before any scan record is created.
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", &ValidationError{Msg: "url is required"}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		u, err = url.Parse("https://" + rawURL)
		if err != nil {
			return "", &ValidationError{Msg: fmt.Sprintf("invalid url: %v", err)}
		}
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ValidationError{Msg: "url must use http or https"}
	}
	if u.Host == "" {
		return "", &ValidationError{Msg: "url is missing a host"}
	}

	host := strings.ToLower(u.Hostname())
	if !validDomain(host) {
		return "", &ValidationError{Msg: fmt.Sprintf("invalid domain %q", host)}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""

	return u.String(), nil
}

func validDomain(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if !dnsLabel.MatchString(label) {
			return false
		}
	}
	return true
}
