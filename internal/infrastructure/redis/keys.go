package cache

import "fmt"

// OrphanIntentsKey holds gateway intents whose local insert failed.
func OrphanIntentsKey() string {
	return "payment:orphan_intents"
}

// PollRateLimitKey scopes the status poll limiter to one client.
func PollRateLimitKey(subject string) string {
	return fmt.Sprintf("payment:rate_limit:poll:%s", subject)
}
