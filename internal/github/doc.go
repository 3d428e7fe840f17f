// Package github is the remote repository service: a thin wrapper over
// go-github covering exactly what the push cycle needs, reading a file's
// version token and issuing guarded create-or-update writes.
package github
