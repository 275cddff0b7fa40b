package llm

import "strings"

// isQuotaError reports whether an API error is quota-shaped: a rate
// limit or usage cap that another credential could sidestep, as opposed
// to a bad request or auth failure that would fail everywhere.
// The SDK wraps HTTP errors, so classification is by status code and
// message substring.
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	// Rate limits (429) and overload shedding (529)
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "529") {
		return true
	}
	if strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "rate_limit") {
		return true
	}
	if strings.Contains(errStr, "quota") {
		return true
	}
	if strings.Contains(errStr, "overloaded") {
		return true
	}

	return false
}
