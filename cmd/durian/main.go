package main

import "github.com/nfrund/durian/cmd/durian/cmd"

func main() {
	cmd.Execute()
}
