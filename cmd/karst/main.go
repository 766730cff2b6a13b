// Package main provides the karst CLI.
package main

import (
	"fmt"
	"os"

	"github.com/karst-ml/karst/backend/webgpu"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("karst %s\n", version)
			return
		case "devices":
			fmt.Println("cpu: available")
			if webgpu.IsAvailable() {
				fmt.Println("webgpu: available")
			} else {
				fmt.Println("webgpu: unavailable")
			}
			return
		}
	}

	fmt.Println("karst - strided tensors and nearest-neighbor search for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  devices    List available compute devices")
}
