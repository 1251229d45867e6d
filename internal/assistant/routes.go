package assistant

import (
	"net/url"
	"strings"
	"unicode"
)

// AllowedRoutes are the only client paths the assistant may suggest
var AllowedRoutes = []string{
	"/dashboard",
	"/clients",
	"/contacts",
	"/opportunities",
	"/proposals",
	"/contracts",
	"/activities",
	"/pricing-requests",
	"/reports",
	"/users",
}

// routeKeywords is checked in order; the first route with a matching word wins.
// Keywords match whole words by prefix.
var routeKeywords = []struct {
	route    string
	keywords []string
}{
	{"/pricing-requests", []string{"pricing"}},
	{"/proposals", []string{"proposal", "quote", "quotation"}},
	{"/contracts", []string{"contract", "renewal", "expir"}},
	{"/opportunities", []string{"opportunit", "deal", "pipeline", "forecast", "funnel"}},
	{"/activities", []string{"activit", "task", "meeting", "call", "overdue", "todo", "followup"}},
	{"/contacts", []string{"contact"}},
	{"/clients", []string{"client", "customer", "account"}},
	{"/reports", []string{"report", "analytic"}},
	{"/users", []string{"user", "team", "staff", "colleague"}},
	{"/dashboard", []string{"dashboard", "overview", "kpi"}},
}

// IsAllowedRoute reports whether path is on the allow-list
func IsAllowedRoute(path string) bool {
	for _, r := range AllowedRoutes {
		if r == path {
			return true
		}
	}
	return false
}

// SanitizeRoute returns the allow-listed form of a model-suggested path, or nil.
// Query strings, fragments, case and a trailing slash are ignored; anything else
// outside the list is discarded.
func SanitizeRoute(raw string) *string {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return nil
	}
	if u, err := url.Parse(candidate); err == nil {
		if u.Scheme != "" || u.Host != "" {
			return nil
		}
		candidate = u.Path
	}
	candidate = strings.ToLower(candidate)
	if !strings.HasPrefix(candidate, "/") {
		candidate = "/" + candidate
	}
	if len(candidate) > 1 {
		candidate = strings.TrimRight(candidate, "/")
	}
	if !IsAllowedRoute(candidate) {
		return nil
	}
	return &candidate
}

// InferRoute guesses a destination from the words of the prompt
func InferRoute(prompt string) *string {
	words := strings.FieldsFunc(strings.ToLower(prompt), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	joined := strings.Join(words, "")
	for _, entry := range routeKeywords {
		for _, kw := range entry.keywords {
			if matchesWord(words, kw) || (kw == "followup" && strings.Contains(joined, kw)) {
				route := entry.route
				return &route
			}
		}
	}
	return nil
}

func matchesWord(words []string, keyword string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, keyword) {
			return true
		}
	}
	return false
}
