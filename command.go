package pipeweld

import (
	"maps"
	"os"
	"slices"
)

// Command names one external program and the exact argument vector it
// receives. Args are handed to the OS as-is: no word splitting, globbing
// or variable expansion happens anywhere, so any byte sequence a caller
// puts into an argument arrives in the child's argv unchanged.
//
// Env entries are merged over the host environment, overriding variables
// of the same name. Dir, when set, becomes the child's working directory.
type Command struct {
	Program string
	Args    []string
	Env     map[string]string
	Dir     string
}

// clone deep-copies the slice and map members so a Graph never shares
// mutable state with the caller.
func (c Command) clone() Command {
	c.Args = slices.Clone(c.Args)
	c.Env = maps.Clone(c.Env)
	return c
}

// environ builds the child environment. Overrides are appended after the
// host environment; os/exec keeps the last value for a duplicated key.
func (c Command) environ() []string {
	env := os.Environ()
	if len(c.Env) == 0 {
		return env
	}
	for _, k := range slices.Sorted(maps.Keys(c.Env)) {
		env = append(env, k+"="+c.Env[k])
	}
	return env
}
