// Command argv prints each of its arguments on its own line, exactly as
// the OS delivered them. Put it at the end of a pipeline to see what a
// stage really receives in its argv, shell metacharacters included.
package main

import (
	"fmt"
	"os"
)

func main() {
	for _, a := range os.Args[1:] {
		fmt.Println(a)
	}
}
