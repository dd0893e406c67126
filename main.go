package main

import (
	"github.com/altheris/mysql-data-apis/cmd"
)

func main() {
	cmd.Execute()
}
