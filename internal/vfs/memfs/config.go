// Package memfs is an in-memory FileSystem back-end, the minimal
// concrete implementation the NFSv3 handler layer needs to be
// exercised by tests and by the example server binary. It is not meant
// as a production storage layer.
package memfs

import (
	"strconv"
	"strings"
)

const delimiter = "/"

type configEntry struct {
	parent  string
	name    string
	isDir   bool
	content []byte
}

// Config describes the initial tree a memfs.FS is built from: a flat
// list of paths, each either a directory or a file with content.
type Config struct {
	entries []configEntry
}

// AddDir registers a directory at path. Panics if path has no trailing
// name component, matching the strictness of the fixture builder this
// is grounded on.
func (c *Config) AddDir(path string) {
	name := lastComponent(path)
	if name == "" {
		panic("memfs: dir path cannot be empty")
	}
	parent := strings.TrimSuffix(path, name)
	c.entries = append(c.entries, configEntry{parent: parent, name: name, isDir: true})
}

// AddFile registers a file at path with the given content.
func (c *Config) AddFile(path string, content []byte) {
	name := lastComponent(path)
	if name == "" {
		panic("memfs: file path cannot be empty")
	}
	parent := strings.TrimSuffix(path, name)
	c.entries = append(c.entries, configEntry{parent: parent, name: name, content: content})
}

func lastComponent(path string) string {
	idx := strings.LastIndex(path, delimiter)
	if idx < 0 {
		return path
	}
	return path[idx+1:]
}

const catArt = `
    /\_____/\
   /  o   o  \
  ( ==  ^  == )
   )         (
  (           )
 ( (  )   (  ) )
(__(__)___(__)__)
`

// DefaultConfig is the fixture tree spec.md's end-to-end scenarios
// (S2, S3, S4) exercise: a.txt, b.txt, cat.txt at the root plus a
// subdirectory holding ten numbered files.
func DefaultConfig() *Config {
	c := &Config{}
	c.AddFile("/a.txt", []byte("hello world\n"))
	c.AddFile("/b.txt", []byte("Greetings\n"))
	c.AddFile("/cat.txt", []byte(catArt))
	c.AddDir("/a directory")
	for i := 0; i < 10; i++ {
		s := strconv.Itoa(i)
		c.AddFile("/a directory/"+s+".txt", []byte(s))
	}
	return c
}
