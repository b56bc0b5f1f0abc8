package main

import "github.com/cmmoran/testablegen/cmd"

func main() {
	cmd.Execute()
}
