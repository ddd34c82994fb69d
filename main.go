package main

import "comanda/pos/cmd"

func main() {
	cmd.Execute()
}
