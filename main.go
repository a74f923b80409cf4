package main

import "github.com/vibast-solutions/ms-go-fees/cmd"

func main() {
	cmd.Execute()
}
