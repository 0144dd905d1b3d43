package main

import (
	_ "vodforge/internal/command/autoscaler"
	_ "vodforge/internal/command/gateway"
	"vodforge/internal/command/root"
	_ "vodforge/internal/command/server"
	_ "vodforge/internal/command/worker"
)

func main() {
	root.Execute()
}
