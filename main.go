package main

import "github.com/readmeai/readmectl/cmd"

func main() {
	cmd.Execute()
}
