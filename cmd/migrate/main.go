package main

import "github.com/streakbot/streakbot/cmd"

func main() {
	cmd.Execute()
}
