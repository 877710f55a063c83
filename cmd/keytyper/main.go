package main

import "keytyper/internal/cli/cmd"

func main() {
	cmd.Execute()
}
