package main

import "github.com/jmcleod/optiva/cmd/optiva/cmd"

func main() {
	cmd.Execute()
}
