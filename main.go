package main

import "github.com/ValentinKolb/dCouch/cmd"

func main() {
	cmd.Execute()
}
