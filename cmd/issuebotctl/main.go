// Command issuebotctl is the administrative client for a running
// issuebotd: trigger backfills and watch Job Engine progress, never the
// server itself.
package main

import "github.com/simili-bot/issuebot/cmd/issuebotctl/commands"

func main() {
	commands.Execute()
}
