/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/killallgit/voxscript/cmd"

// @title           VoxScript API
// @version         1.0.0
// @description     Speech-to-text for audio sources, backed by whisper.cpp
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @BasePath        /
// @schemes         http
func main() {
	cmd.Execute()
}
