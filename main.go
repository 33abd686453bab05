package main

import "github.com/iksnae/harness-session/cmd"

func main() {
	cmd.Execute()
}
