package main

import "github.com/oveliahealth/ovelia_backend/cmd"

func main() {
	cmd.Execute()
}
