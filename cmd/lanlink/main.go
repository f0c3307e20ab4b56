package main

import "lanlink-core/internal/cli/cmd"

func main() {
	cmd.Execute()
}
