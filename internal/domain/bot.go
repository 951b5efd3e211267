package domain

import "strings"

// BotSentinel is embedded in every reply the bot itself posts, so that a
// reply surfaced back to us via a later webhook (e.g. a forge that echoes
// the poster's own comment) is still recognized as bot-authored even if
// the login comparison below is inconclusive (different app vs. user
// identity per forge).
const BotSentinel = "<!-- simili-bot:reply -->"

// IsBotAuthor decides bot authorship conservatively: it checks two
// signals -- the author login against the configured bot account, and
// the embedded sentinel in the body. Either one is sufficient; this
// intentionally over-detects to avoid feedback loops where the bot
// replies to its own reply, never under-detects.
func IsBotAuthor(login, body string, configuredBotLogins []string) bool {
	if matchesBotLogin(login, configuredBotLogins) {
		return true
	}
	return strings.Contains(body, BotSentinel)
}

func matchesBotLogin(login string, configured []string) bool {
	if strings.HasSuffix(login, "[bot]") {
		return true
	}
	for _, u := range configured {
		if strings.EqualFold(login, u) {
			return true
		}
	}
	return false
}
