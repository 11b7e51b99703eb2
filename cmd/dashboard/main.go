package main

import "github.com/radiusdt/campaign-dashboard/internal/cli"

func main() {
	cli.Execute()
}
