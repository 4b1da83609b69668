// Package testutil holds the sample inputs shared by package tests.
package testutil

// ExampleListing describes the sample filesystem as a nested listing.
const ExampleListing = `- / (dir)
  - a (dir)
    - e (dir)
      - i (file, size=584)
    - f (file, size=29116)
    - g (file, size=2557)
    - h.lst (file, size=62596)
  - b.txt (file, size=14848514)
  - c.dat (file, size=8504156)
  - d (dir)
    - j (file, size=4060174)
    - d.log (file, size=8033020)
    - d.ext (file, size=5626152)
    - k (file, size=7214296)`

// ExampleTranscript is the shell session that discovers the same filesystem.
const ExampleTranscript = `$ cd /
$ ls
dir a
14848514 b.txt
8504156 c.dat
dir d
$ cd a
$ ls
dir e
29116 f
2557 g
62596 h.lst
$ cd e
$ ls
584 i
$ cd ..
$ cd ..
$ cd d
$ ls
4060174 j
8033020 d.log
5626152 d.ext
7214296 k
`

// ExampleTotalSize is the size of the sample root directory.
const ExampleTotalSize = 48381165

// ExampleWalk is the pre-order name sequence of the sample filesystem.
var ExampleWalk = []string{
	"/", "a", "e", "i", "f", "g", "h.lst", "b.txt", "c.dat",
	"d", "j", "d.log", "d.ext", "k",
}
