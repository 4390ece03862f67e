package main

import "github.com/nfrund/relaychat/cmd/relaychat/cmd"

func main() {
	cmd.Execute()
}
