package main

import "github.com/gee-community/geeconvert/cmd"

var version = "v0.3.1"

func main() {
	cmd.Execute(version)
}
