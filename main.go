/*
Copyright © 2025 Yussuf
*/
package main

import "tagdeploy/cmd"

func main() {
	cmd.Execute()
}
