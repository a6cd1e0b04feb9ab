package main

import "github.com/transparenciamx/numeralia/internal/cmd"

func main() {
	cmd.Execute()
}
