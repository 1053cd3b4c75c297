package main

import "salesdw/cmd"

func main() {
	cmd.Execute()
}
