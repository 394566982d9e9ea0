package main

import "github.com/Tyrowin/gorelay/cmd/client/command"

func main() {
	command.Execute()
}
