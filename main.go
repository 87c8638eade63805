package main

import "github.com/frahmantamala/procurement/cmd"

func main() {
	cmd.Execute()
}
