// Command switchctl is the CLI client for the goswitch admin API.
package main

import "github.com/l2bridge/goswitch/cmd/switchctl/commands"

func main() {
	commands.Execute()
}
