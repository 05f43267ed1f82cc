package main

import "github.com/odedia/translation-layer/cmd"

func main() {
	cmd.Execute()
}
