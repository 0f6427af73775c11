package main

import "github.com/polkafarm/polkafarm/cmd"

func main() {
	cmd.Execute()
}
