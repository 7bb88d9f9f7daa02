package main

import "github.com/dotcommander/clinscale/cmd"

func main() {
	cmd.Execute()
}
