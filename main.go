package main

import "iiqsort/cmd"

func main() {
	cmd.Execute()
}
