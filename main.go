package main

import "github.com/reloquent/schemair/cmd"

func main() {
	cmd.Execute()
}
