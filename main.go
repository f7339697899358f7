package main

import "yqhp/bitable-doc/cmd"

func main() {
	cmd.Execute()
}
