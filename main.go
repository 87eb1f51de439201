package main

import "github.com/drgolem/musicplayer/cmd"

func main() {
	cmd.Execute()
}
