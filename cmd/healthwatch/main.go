package main

import "github.com/edupulse/healthwatch/internal/cli"

func main() {
	cli.Execute()
}
