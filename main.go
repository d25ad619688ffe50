package main

import "github.com/yeremiapane/tablebook/cmd"

func main() {
	cmd.Execute()
}
