package main

import "github.com/vibe-labs/vibe-rewards/cmd"

func main() {
	cmd.Execute()
}
