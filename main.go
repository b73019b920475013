package main

import "github.com/storekit/wa-bridge/cmd"

func main() {
	cmd.Execute()
}
