package main

import "github.com/KaramelBytes/finlens/cmd"

func main() {
	cmd.Execute()
}
