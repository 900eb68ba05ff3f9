package main

import "github.com/celaya-solutions/SE-Reference-System-2/cmd"

func main() {
	cmd.Execute()
}
