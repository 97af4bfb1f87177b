package main

import "github.com/obelisk-rag/obelisk/cmd"

func main() {
	cmd.Execute()
}
