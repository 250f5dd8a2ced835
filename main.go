package main

import "github.com/pipelab/pipelab/cmd"

func main() {
	cmd.Execute()
}
