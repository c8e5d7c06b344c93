package main

import "points-ledger/internal/cli"

func main() {
	cli.Execute()
}
