// bio-bedindex builds and queries containment indexes over BED files.
//
//   bio-bedindex index regions.bed.gz
//   bio-bedindex find regions.bed.gz chr1:10001-20000 chr2
//   bio-bedindex serve -port=8080 regions.bed.gz
//
// Run "bio-bedindex help" for the full flag list.
package main

import "github.com/grailbio/bedindex/cmd/bio-bedindex/cmd"

func main() {
	cmd.Run()
}
