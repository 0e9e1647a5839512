package main

import "storage-marketplace/cmd"

func main() {
	cmd.Execute()
}
