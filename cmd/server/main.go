package main

import "github.com/seremi5/expense-server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
