package main

import "github.com/terraconstructs/rollcall/cmd/rollcall/cmd"

func main() {
	cmd.Execute()
}
