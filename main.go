package main

import "github.com/berth-cd/berth/cmd/root"

func main() {
	root.Execute()
}
