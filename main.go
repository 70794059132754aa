package main

import (
	"fmt"

	"github.com/notifyhub/sse-engine/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
