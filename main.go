package main

import "github.com/kiesman99/tilecut/cmd"

func main() {
	cmd.Execute()
}
