package main

import "mailsweep/internal/cli"

func main() {
	cli.Execute()
}
