package main

import "github.com/shouni/go-web-analyzer/cmd"

func main() {
	cmd.Execute()
}
