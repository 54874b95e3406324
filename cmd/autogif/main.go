package main

import "autogif/internal/cli"

func main() {
	cli.Execute()
}
