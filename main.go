package main

import "github.com/openscribe/consult-api/cmd"

func main() {
	cmd.Execute()
}
