package main

import "sessiond/internal/ctl"

func main() {
	ctl.Main()
}
