package main

import "mediguard/cmd"

func main() {
	cmd.Execute()
}
