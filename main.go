/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/startblog/apiserver/cmd"

func main() {
	cmd.Execute()
}
