package main

import (
	"fmt"

	"github.com/gridline/table-sync-service/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
