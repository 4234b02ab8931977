package main

import "AgentDeck/client/agentdeck-cli/cmd"

func main() {
	cmd.Execute()
}
