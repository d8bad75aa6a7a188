package main

import "github.com/kmit-fdms/fdms/cmd"

func main() {
	cmd.Execute()
}
