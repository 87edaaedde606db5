// Package main 是酒店运维命令行工具
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
