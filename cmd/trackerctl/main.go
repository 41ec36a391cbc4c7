package main

import "github.com/IvanSitnikov1/tracker-bot/cmd/trackerctl/root"

func main() {
	root.Execute()
}
