package main

import "github.com/qpadgham/archbuild/cmd"

func main() {
	cmd.Execute()
}
