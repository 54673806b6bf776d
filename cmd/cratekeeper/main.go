package main

import "cratekeeper/internal/cli"

func main() {
	cli.Execute()
}
