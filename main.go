package main

import "github.com/Johannes-Berggren/goblinswitch/cmd"

func main() {
	cmd.Execute()
}
