package main

import (
	"fmt"
	"os"

	"github.com/VanDung-dev/flm-bridge/flm"
)

// Version information
const (
	Version = "0.1.0"
	Name    = "flm-bridge"
)

func main() {
	c := flm.GetConstants()
	fmt.Printf("%s v%s\n", Name, Version)
	fmt.Println("Cross-language call bridge for the filter list manager")
	fmt.Printf("Reserved ids: user rules %d, custom group %d, smallest filter %d\n",
		c.UserRulesID, c.CustomGroupID, c.SmallestFilterID)
	fmt.Println("Binaries: cmd/libflm (c-shared), cmd/flmctl, cmd/flm-server, cmd/flm-stress")
	os.Exit(0)
}
