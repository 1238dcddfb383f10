package main

import "github.com/openmlhub/model-registry/cmd"

func main() {
	cmd.Execute()
}
