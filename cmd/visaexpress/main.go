package main

import "github.com/jmcleod/visaexpress/cmd/visaexpress/cmd"

func main() {
	cmd.Execute()
}
