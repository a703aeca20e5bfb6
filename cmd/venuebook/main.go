package main

import "venuebook/internal/cli"

func main() {
	cli.Execute()
}
