package main

import "github.com/parlor-network/parlor/internal/cli"

func main() {
	cli.Execute()
}
