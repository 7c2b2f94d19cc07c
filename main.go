package main

import "cuprecap/internal/cli"

func main() {
	cli.Execute()
}
