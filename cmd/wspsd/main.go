package main

import "github.com/kaelianbaudelet/WSPS/cmd/wspsd/cmd"

func main() {
	cmd.Execute()
}
