package main

import (
	"os"

	"github.com/ivnvMkhl/icon-offerer-cf/cmd"
)

// @title        Icon Offerer API
// @version      1.0
// @description  根据自然语言描述推荐图标库中的图标名称
// @BasePath     /
func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
