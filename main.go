package main

import "github.com/xiaomi-sm6250/powerhal/cmd"

func main() {
	cmd.Execute()
}
