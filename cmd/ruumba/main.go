package main

import "github.com/mvp-joe/ruumba/internal/cli"

func main() {
	cli.Execute()
}
