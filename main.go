package main

import "github.com/route-studio/roadgraph/cmd"

func main() {
	cmd.Execute()
}
